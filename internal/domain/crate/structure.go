package crate

import (
	"math"

	"crateworks/internal/domain/world"
)

const StructureParts = 32

const (
	PartSpine        = 0
	PartTop          = 1
	PartLeftDisplay  = 2
	PartRightDisplay = 3
	LeftArmFirst     = 4
	LeftArmLast      = 17
	RightArmFirst    = 18
	RightArmLast     = 31
)

type Role string

const (
	RoleSpine    Role = "spine"
	RoleTop      Role = "top"
	RoleDisplay  Role = "display"
	RoleLeftArm  Role = "left_arm"
	RoleRightArm Role = "right_arm"
)

func PartRole(index int) Role {
	switch {
	case index == PartSpine:
		return RoleSpine
	case index == PartTop:
		return RoleTop
	case index == PartLeftDisplay || index == PartRightDisplay:
		return RoleDisplay
	case index >= LeftArmFirst && index <= LeftArmLast:
		return RoleLeftArm
	default:
		return RoleRightArm
	}
}

type EquipmentSlot string

const SlotHelmet EquipmentSlot = "helmet"

// Rotation holds euler angles in degrees.
type Rotation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Pose struct {
	Position world.Position `json:"position"`
	Head     Rotation       `json:"head"`
	LeftArm  Rotation       `json:"left_arm"`
	RightArm Rotation       `json:"right_arm"`
}

// armCurve is the (outward, upward) offset of each link of an arm chain.
var armCurve = [14][2]float64{
	{0.0, 0.0},
	{0.06, 0.081},
	{0.13, 0.15},
	{0.22, 0.21},
	{0.31, 0.26},
	{0.41, 0.282},
	{0.512, 0.288},
	{0.615, 0.278},
	{0.715, 0.249},
	{0.805, 0.201},
	{0.89, 0.14},
	{0.96, 0.064},
	{1.015, -0.02},
	{1.06, -0.12},
}

// Layout computes the resting pose of every part of a construct at origin.
func Layout(origin world.Position, o Orientation) [StructureParts]Pose {
	var out [StructureParts]Pose
	for i := 0; i < StructureParts; i++ {
		if i < LeftArmFirst {
			p := Pose{Position: origin}
			if i == PartLeftDisplay || i == PartRightDisplay {
				p.Position = DisplayRestPosition(origin, o)
				p.LeftArm = Rotation{X: -90}
				p.RightArm = Rotation{X: -90}
			}
			if o == NorthSouth {
				p.Head = Rotation{Y: 90}
			}
			out[i] = p
			continue
		}

		link := (i - LeftArmFirst) % len(armCurve)
		up := armCurve[link][0]
		side := armCurve[link][1]
		angle := float64(((i - LeftArmFirst) * 10) % 140)
		if i > LeftArmLast {
			angle = -angle
		} else {
			side = -side
		}

		p := Pose{}
		if o == NorthSouth {
			p.Position = origin.Offset(side, up, 0)
			p.Head = Rotation{Y: 90, Z: angle}
		} else {
			p.Position = origin.Offset(0, up, -side)
			p.Head = Rotation{X: -angle}
		}
		out[i] = p
	}
	return out
}

// SpinePosition is the bobbing spine at the given idle degree.
func SpinePosition(origin world.Position, degree float64) world.Position {
	return origin.Offset(0, -math.Abs((degree-180)/360)+0.5, 0).WithYaw(degree)
}

func displaySide(part int) float64 {
	if part == PartLeftDisplay {
		return -1
	}
	return 1
}

func DisplayRestPosition(origin world.Position, o Orientation) world.Position {
	p := origin.Offset(0, 0.5, 0)
	p.Pitch = 0
	return p.WithYaw(o.DisplayYaw())
}

// DisplayArcPosition places a reward display on the rising arc for
// progress in [0, 1.5].
func DisplayArcPosition(origin world.Position, o Orientation, part int, progress float64) world.Position {
	lift := (progress - 0.6329113) * 1.58
	dx, dz := o.Lateral(displaySide(part) * progress)
	p := origin.Offset(dx, 0.5-lift*lift+1, dz)
	p.Pitch = 0
	return p.WithYaw(o.DisplayYaw())
}

// DisplayHoldPosition keeps a reward display at full spread while progress
// counts up in discrete steps.
func DisplayHoldPosition(origin world.Position, o Orientation, part int, progress float64) world.Position {
	dx, dz := o.Lateral(displaySide(part) * 1.5)
	y := 0.37690040004 - math.Abs((math.Mod(progress, 360)-180)/600) + 0.3
	p := origin.Offset(dx, y, dz)
	p.Pitch = 0
	return p.WithYaw(o.DisplayYaw())
}

// BurstPosition is where the reveal particles of a display spawn.
func BurstPosition(origin world.Position, o Orientation, part int) world.Position {
	dx, dz := o.Lateral(displaySide(part) * 1.5)
	return origin.Offset(dx, 1.5, dz)
}

// ArmSlot is clamp(base + degree/10, lo, hi).
func ArmSlot(base, degree, lo, hi int) int {
	idx := base + degree/10
	if idx < lo {
		return lo
	}
	if idx > hi {
		return hi
	}
	return idx
}

// ArmStep names the chain links cleared and equipped in one animation step.
type ArmStep struct {
	ClearLeft  int
	ClearRight int
	EquipLeft  int
	EquipRight int
}

// OpeningStep trails the previous link while the arms unfold.
func OpeningStep(degree int) ArmStep {
	return ArmStep{
		ClearLeft:  ArmSlot(3, degree, LeftArmFirst, LeftArmLast),
		ClearRight: ArmSlot(17, degree, RightArmFirst, RightArmLast),
		EquipLeft:  ArmSlot(4, degree, LeftArmFirst, LeftArmLast),
		EquipRight: ArmSlot(18, degree, RightArmFirst, RightArmLast),
	}
}

// ClosingStep clears the link ahead while the arms fold back.
func ClosingStep(degree int) ArmStep {
	return ArmStep{
		ClearLeft:  ArmSlot(5, degree, LeftArmFirst, LeftArmLast),
		ClearRight: ArmSlot(19, degree, RightArmFirst, RightArmLast),
		EquipLeft:  ArmSlot(4, degree, LeftArmFirst, LeftArmLast),
		EquipRight: ArmSlot(18, degree, RightArmFirst, RightArmLast),
	}
}
