package crates

import (
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

type Status struct {
	Name        string            `json:"name"`
	Size        crate.Size        `json:"size"`
	Capacity    int               `json:"capacity"`
	Prizes      int               `json:"prizes"`
	Key         string            `json:"key"`
	Color       string            `json:"color,omitempty"`
	Orientation crate.Orientation `json:"orientation"`
	Location    world.Position    `json:"location"`
	Phase       string            `json:"phase"`
	Degree      int               `json:"degree"`
	Actor       world.ObserverID  `json:"actor,omitempty"`
	Ready       bool              `json:"ready"`
}

type Detail struct {
	Status     Status           `json:"status"`
	Definition crate.Definition `json:"definition"`
}

type TriggerResult struct {
	Crate string           `json:"crate"`
	Actor world.ObserverID `json:"actor"`
	Batch []crate.Prize    `json:"batch"`
	Tick  uint64           `json:"tick"`
}

type CreateRequest struct {
	Name        string         `json:"name"`
	Size        string         `json:"size"`
	Location    world.Position `json:"location"`
	Orientation string         `json:"orientation"`
	Facing      string         `json:"facing"`
	Color       string         `json:"color"`
	Key         string         `json:"key"`
	Skin        [4]crate.Item  `json:"skin"`
	Prizes      []PrizeRequest `json:"prizes"`
}

// PrizeRequest is a prize as submitted. A missing weight takes the default;
// an explicit 0 is kept.
type PrizeRequest struct {
	Slot   int        `json:"slot"`
	Item   crate.Item `json:"item"`
	Weight *float64   `json:"weight,omitempty"`
	Rare   bool       `json:"rare"`
	Tags   []string   `json:"tags,omitempty"`
}

func (p PrizeRequest) Prize() crate.Prize {
	weight := crate.DefaultPrizeWeight
	if p.Weight != nil {
		weight = *p.Weight
	}
	return crate.Prize{
		Slot:   p.Slot,
		Item:   p.Item,
		Weight: weight,
		Rare:   p.Rare,
		Tags:   append([]string(nil), p.Tags...),
	}
}

func PrizesFrom(reqs []PrizeRequest) []crate.Prize {
	if reqs == nil {
		return nil
	}
	out := make([]crate.Prize, len(reqs))
	for i, p := range reqs {
		out[i] = p.Prize()
	}
	return out
}

type UpdateRequest struct {
	Size  *string `json:"size,omitempty"`
	Key   *string `json:"key,omitempty"`
	Color *string `json:"color,omitempty"`
}

type UpdateResponse struct {
	Detail  Detail        `json:"detail"`
	Evicted []crate.Prize `json:"evicted,omitempty"`
}

type SkinRequest struct {
	Index int        `json:"index"`
	Item  crate.Item `json:"item"`
}

type TriggerRequest struct {
	Crate string           `json:"crate"`
	Actor world.ObserverID `json:"actor"`
}
