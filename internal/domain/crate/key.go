package crate

import (
	"errors"
	"strings"
)

// MaxKeys bounds the key catalog to one menu page.
const MaxKeys = 54

var (
	ErrInvalidKey = errors.New("invalid key")
	ErrInvalidTag = errors.New("invalid tag")
)

// Key is a named item template that must be spent to trigger a construct.
type Key struct {
	Name string `json:"name" yaml:"name"`
	Item Item   `json:"item" yaml:"item"`
	Slot int    `json:"slot" yaml:"slot"`
}

func (k Key) Validate() error {
	if strings.TrimSpace(k.Name) == "" || k.Slot < 0 || k.Slot >= MaxKeys {
		return ErrInvalidKey
	}
	if err := k.Item.Validate(); err != nil {
		return errors.Join(ErrInvalidKey, err)
	}
	return nil
}

// Unit is the single item consumed per trigger.
func (k Key) Unit() Item {
	it := k.Item
	it.Amount = 1
	return it
}

type Tag struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

func (t Tag) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrInvalidTag
	}
	return nil
}
