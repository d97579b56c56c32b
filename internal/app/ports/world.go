package ports

import (
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

type ObserverPresence struct {
	ID       world.ObserverID `json:"id"`
	Position world.Position   `json:"position"`
}

// ObserverDirectory answers which observers are connected and where.
type ObserverDirectory interface {
	Position(id world.ObserverID) (world.Position, bool)
	Connected() []ObserverPresence
}

// Presence tracks connections. Connect on an already connected observer
// only moves it.
type Presence interface {
	ObserverDirectory
	Connect(id world.ObserverID, pos world.Position) error
	Move(id world.ObserverID, pos world.Position) error
	Disconnect(id world.ObserverID) bool
}

// PartState is everything a client needs to draw one part from scratch.
type PartState struct {
	Pose      crate.Pose                         `json:"pose"`
	Equipment map[crate.EquipmentSlot]crate.Item `json:"equipment,omitempty"`
}

// VisualDispatch delivers per-observer visual updates. Observer batches are
// never empty.
type VisualDispatch interface {
	Show(objectID string, observers []world.ObserverID, state PartState)
	Hide(objectID string, observers []world.ObserverID)
	UpdatePose(objectID string, observers []world.ObserverID, pose crate.Pose)
	UpdateEquipment(objectID string, observers []world.ObserverID, slot crate.EquipmentSlot, item *crate.Item)
}

type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

var White = Color{R: 255, G: 255, B: 255}

type Effects interface {
	Particles(at world.Position, count int, color Color)
	Sound(at world.Position, name string)
}

type Announcer interface {
	Notify(observer world.ObserverID, message string)
	Broadcast(message string)
}

// Inventory is the actor item store granted to and consumed from.
type Inventory interface {
	CanFit(observer world.ObserverID, items []crate.Item) bool
	Add(observer world.ObserverID, items []crate.Item) error
	Count(observer world.ObserverID, template crate.Item) int
	RemoveOne(observer world.ObserverID, template crate.Item) bool
}
