package world

import (
	"errors"
	"math"
)

type ObserverID string

type Position struct {
	World string  `json:"world" yaml:"world"`
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Z     float64 `json:"z" yaml:"z"`
	Yaw   float64 `json:"yaw" yaml:"yaw"`
	Pitch float64 `json:"pitch" yaml:"pitch"`
}

var ErrInvalidPosition = errors.New("invalid position")

func (p Position) Validate() error {
	if p.World == "" {
		return ErrInvalidPosition
	}
	for _, v := range []float64{p.X, p.Y, p.Z, p.Yaw, p.Pitch} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidPosition
		}
	}
	return nil
}

// Offset returns p moved by (dx, dy, dz), keeping world and rotation.
func (p Position) Offset(dx, dy, dz float64) Position {
	p.X += dx
	p.Y += dy
	p.Z += dz
	return p
}

func (p Position) WithYaw(yaw float64) Position {
	p.Yaw = yaw
	return p
}

// Distance is the euclidean distance between a and b, or +Inf when they are
// in different worlds.
func Distance(a, b Position) float64 {
	if a.World != b.World {
		return math.Inf(1)
	}
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
