package crate

import (
	"errors"
	"math"
)

const (
	DefaultPrizeWeight = 50.0
	MinPromptWeight    = 1.0
	MaxPromptWeight    = 100.0
)

var ErrInvalidPrize = errors.New("invalid prize")

// Prize is one weighted reward candidate occupying a slot of the pool.
type Prize struct {
	Slot   int      `json:"slot"`
	Item   Item     `json:"item"`
	Weight float64  `json:"weight"`
	Rare   bool     `json:"rare"`
	Tags   []string `json:"tags,omitempty"`
}

func (p Prize) Validate() error {
	if p.Slot < 0 {
		return ErrInvalidPrize
	}
	if err := p.Item.Validate(); err != nil {
		return errors.Join(ErrInvalidPrize, err)
	}
	if math.IsNaN(p.Weight) || math.IsInf(p.Weight, 0) || p.Weight < 0 {
		return ErrInvalidPrize
	}
	return nil
}

func (p Prize) RewardWeight() float64 { return p.Weight }

func (p Prize) Clone() Prize {
	out := p
	if p.Tags != nil {
		out.Tags = append([]string(nil), p.Tags...)
	}
	return out
}

func ClonePrizes(in []Prize) []Prize {
	if in == nil {
		return nil
	}
	out := make([]Prize, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

func BatchItems(batch []Prize) []Item {
	out := make([]Item, 0, len(batch))
	for _, p := range batch {
		out = append(out, p.Item)
	}
	return out
}

func AnyRare(batch []Prize) bool {
	for _, p := range batch {
		if p.Rare {
			return true
		}
	}
	return false
}
