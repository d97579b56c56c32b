package crate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"crateworks/internal/domain/world"
)

const SkinParts = 4

const (
	SkinSpine = iota
	SkinTop
	SkinLeftArm
	SkinRightArm
)

var (
	ErrInvalidDefinition = errors.New("invalid crate definition")

	namePattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// Definition is the persisted description of a construct.
type Definition struct {
	Name        string          `json:"name"`
	Size        Size            `json:"size"`
	Location    world.Position  `json:"location"`
	Orientation Orientation     `json:"orientation"`
	Color       string          `json:"color"`
	KeyName     string          `json:"key"`
	Skin        [SkinParts]Item `json:"skin"`
	Prizes      []Prize         `json:"prizes"`
}

func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

func (d Definition) Validate() error {
	if !ValidName(d.Name) {
		return fmt.Errorf("%w: name %q", ErrInvalidDefinition, d.Name)
	}
	if !d.Size.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, ErrInvalidSize)
	}
	if err := d.Location.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	if !d.Orientation.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, ErrInvalidOrientation)
	}
	if d.Color != "" && !colorPattern.MatchString(d.Color) {
		return fmt.Errorf("%w: color %q", ErrInvalidDefinition, d.Color)
	}
	if strings.TrimSpace(d.KeyName) == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidDefinition)
	}
	for i, it := range d.Skin {
		if it.IsZero() {
			continue
		}
		if err := it.Validate(); err != nil {
			return fmt.Errorf("%w: skin %d: %w", ErrInvalidDefinition, i, err)
		}
	}
	if len(d.Prizes) > d.Size.Capacity() {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, ErrPoolFull)
	}
	seen := map[int]bool{}
	for _, p := range d.Prizes {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: slot %d: %w", ErrInvalidDefinition, p.Slot, err)
		}
		if p.Slot >= d.Size.Capacity() {
			return fmt.Errorf("%w: %w", ErrInvalidDefinition, ErrSlotOutOfRange)
		}
		if seen[p.Slot] {
			return fmt.Errorf("%w: %w", ErrInvalidDefinition, ErrSlotOccupied)
		}
		seen[p.Slot] = true
	}
	return nil
}

// BuildPool materializes the prize list into a pool sized by the tier.
func (d Definition) BuildPool() (*Pool, error) {
	pool := NewPool(d.Size.Capacity())
	for _, p := range d.Prizes {
		if err := pool.Add(p); err != nil {
			return nil, err
		}
	}
	return pool, nil
}

func (d Definition) Clone() Definition {
	out := d
	out.Prizes = ClonePrizes(d.Prizes)
	return out
}
