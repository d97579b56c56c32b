package crate

import (
	"errors"
	"fmt"
	"strings"
)

// Size is the reward pool capacity tier.
type Size int

const (
	SizeOne Size = iota + 1
	SizeTwo
	SizeThree
	SizeFour
	SizeFive
	SizeSix
)

var ErrInvalidSize = errors.New("invalid crate size")

var sizeNames = map[Size]string{
	SizeOne:   "ONE",
	SizeTwo:   "TWO",
	SizeThree: "THREE",
	SizeFour:  "FOUR",
	SizeFive:  "FIVE",
	SizeSix:   "SIX",
}

func (s Size) Valid() bool {
	return s >= SizeOne && s <= SizeSix
}

// Capacity is the number of reward slots: 9 per tier.
func (s Size) Capacity() int {
	if !s.Valid() {
		return 0
	}
	return int(s) * 9
}

// Next cycles to the following tier, wrapping after the largest.
func (s Size) Next() Size {
	if !s.Valid() || s == SizeSix {
		return SizeOne
	}
	return s + 1
}

func (s Size) String() string {
	if name, ok := sizeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Size(%d)", int(s))
}

func ParseSize(raw string) (Size, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	for s, name := range sizeNames {
		if name == raw {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSize, raw)
}

// SizeForCapacity maps 9, 18, ... 54 back to a tier.
func SizeForCapacity(capacity int) (Size, error) {
	if capacity <= 0 || capacity%9 != 0 {
		return 0, fmt.Errorf("%w: capacity %d", ErrInvalidSize, capacity)
	}
	s := Size(capacity / 9)
	if !s.Valid() {
		return 0, fmt.Errorf("%w: capacity %d", ErrInvalidSize, capacity)
	}
	return s, nil
}

func (s Size) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Size) UnmarshalText(b []byte) error {
	v, err := ParseSize(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
