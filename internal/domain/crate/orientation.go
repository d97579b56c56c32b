package crate

import (
	"errors"
	"fmt"
	"strings"
)

// Orientation selects the horizontal axis the arm chains and reward displays
// spread along.
type Orientation string

const (
	EastWest   Orientation = "EW"
	NorthSouth Orientation = "NS"
)

var ErrInvalidOrientation = errors.New("invalid orientation")

func (o Orientation) Valid() bool {
	return o == EastWest || o == NorthSouth
}

func ParseOrientation(raw string) (Orientation, error) {
	o := Orientation(strings.ToUpper(strings.TrimSpace(raw)))
	if !o.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrientation, raw)
	}
	return o, nil
}

// OrientationForFacing picks NS when the creator faces north or south and EW
// otherwise.
func OrientationForFacing(facing string) Orientation {
	switch strings.ToUpper(strings.TrimSpace(facing)) {
	case "NORTH", "SOUTH", "N", "S":
		return NorthSouth
	default:
		return EastWest
	}
}

// Lateral converts a signed offset along the orientation axis to (dx, dz).
func (o Orientation) Lateral(offset float64) (dx, dz float64) {
	if o == NorthSouth {
		return offset, 0
	}
	return 0, offset
}

// DisplayYaw is the facing of the two reward displays.
func (o Orientation) DisplayYaw() float64 {
	if o == NorthSouth {
		return 0
	}
	return 270
}
