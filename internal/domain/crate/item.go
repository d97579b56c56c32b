package crate

import (
	"errors"
	"strings"
)

const MaxStack = 64

// Item is an opaque payload granted to or consumed from an actor's inventory.
type Item struct {
	Material string `json:"material" yaml:"material"`
	Amount   int    `json:"amount" yaml:"amount"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
}

var ErrInvalidItem = errors.New("invalid item")

func (i Item) Validate() error {
	if strings.TrimSpace(i.Material) == "" || i.Amount <= 0 || i.Amount > MaxStack {
		return ErrInvalidItem
	}
	return nil
}

// Stacks reports whether two items share a stack identity.
func (i Item) Stacks(other Item) bool {
	return i.Material == other.Material && i.Name == other.Name
}

// DisplayName is the custom name when set, else the material in words.
func (i Item) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return strings.ReplaceAll(i.Material, "_", " ")
}

func (i Item) IsZero() bool {
	return i.Material == ""
}

func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
