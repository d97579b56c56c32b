package crate

import "fmt"

type PhaseKind int

const (
	PhaseIdle PhaseKind = iota
	PhaseWaitingForActor
	PhaseOpening
	PhaseRestarting
	PhaseClosing
)

var phaseNames = [...]string{"idle", "waiting_for_actor", "opening", "restarting", "closing"}

func (k PhaseKind) String() string {
	if k < 0 || int(k) >= len(phaseNames) {
		return fmt.Sprintf("PhaseKind(%d)", int(k))
	}
	return phaseNames[k]
}

const (
	// OpenDegreeMax is the last opening degree that still unfolds the arms.
	OpenDegreeMax = 130
	// ArcProgressMax ends the rising arc of the reward displays.
	ArcProgressMax = 1.5
	// RevealProgressMax is the progress after which the batch is granted.
	RevealProgressMax = 401.0
	// OpenTriggerDegree is the idle degree at which a waiting construct opens.
	OpenTriggerDegree = 10
)

// Phase is the animation state of a construct. Degree is the spine degree in
// Idle and WaitingForActor and the arm degree in Opening and Closing.
// Progress is only meaningful in Restarting.
type Phase struct {
	Kind     PhaseKind `json:"kind"`
	Degree   int       `json:"degree"`
	Progress float64   `json:"progress,omitempty"`
}

func Idle(degree int) Phase            { return Phase{Kind: PhaseIdle, Degree: degree} }
func WaitingForActor(degree int) Phase { return Phase{Kind: PhaseWaitingForActor, Degree: degree} }
func Opening(degree int) Phase         { return Phase{Kind: PhaseOpening, Degree: degree} }
func Restarting(progress float64) Phase {
	return Phase{Kind: PhaseRestarting, Progress: progress}
}
func Closing(degree int) Phase { return Phase{Kind: PhaseClosing, Degree: degree} }

func (p Phase) IsIdle() bool { return p.Kind == PhaseIdle }

// Spinning reports whether the spine bob animation runs in this phase.
func (p Phase) Spinning() bool {
	return p.Kind == PhaseIdle || p.Kind == PhaseWaitingForActor
}

func (p Phase) String() string {
	if p.Kind == PhaseRestarting {
		return fmt.Sprintf("%s(%.2f)", p.Kind, p.Progress)
	}
	return fmt.Sprintf("%s(%d)", p.Kind, p.Degree)
}
