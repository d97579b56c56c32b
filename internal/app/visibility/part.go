package visibility

import (
	"fmt"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

// Part is one renderable element of a construct. Pose and equipment changes
// are pushed to the observers it is currently shown to; newly shown
// observers receive the full state.
type Part struct {
	tracker   *Tracker
	pose      crate.Pose
	equipment map[crate.EquipmentSlot]crate.Item
	dispatch  ports.VisualDispatch
}

func NewPart(id string, pose crate.Pose, dir ports.ObserverDirectory, policy world.PerceptionPolicy, dispatch ports.VisualDispatch) (*Part, error) {
	if dispatch == nil {
		return nil, fmt.Errorf("%w: nil dispatch", ErrInvalidTracker)
	}
	p := &Part{
		pose:      pose,
		equipment: map[crate.EquipmentSlot]crate.Item{},
		dispatch:  dispatch,
	}
	tracker, err := NewTracker(id, pose.Position, dir, policy,
		func(batch []world.ObserverID) { dispatch.Show(id, batch, p.State()) },
		func(batch []world.ObserverID) { dispatch.Hide(id, batch) },
	)
	if err != nil {
		return nil, err
	}
	p.tracker = tracker
	return p, nil
}

func (p *Part) ID() string                { return p.tracker.ID() }
func (p *Part) Tracker() *Tracker         { return p.tracker }
func (p *Part) Pose() crate.Pose          { return p.pose }
func (p *Part) Tick()                     { p.tracker.Tick() }
func (p *Part) Stop()                     { p.tracker.Stop() }
func (p *Part) Shown() []world.ObserverID { return p.tracker.Shown() }

func (p *Part) State() ports.PartState {
	eq := make(map[crate.EquipmentSlot]crate.Item, len(p.equipment))
	for k, v := range p.equipment {
		eq[k] = v
	}
	return ports.PartState{Pose: p.pose, Equipment: eq}
}

func (p *Part) Equipment(slot crate.EquipmentSlot) (crate.Item, bool) {
	it, ok := p.equipment[slot]
	return it, ok
}

// Teleport moves the part and keeps the head and arm rotations.
func (p *Part) Teleport(pos world.Position) {
	if p.pose.Position == pos {
		return
	}
	p.pose.Position = pos
	p.tracker.SetTransform(pos)
	p.pushPose()
}

func (p *Part) SetPose(pose crate.Pose) {
	p.pose = pose
	p.tracker.SetTransform(pose.Position)
	p.pushPose()
}

func (p *Part) Equip(slot crate.EquipmentSlot, item crate.Item) {
	if item.IsZero() {
		p.Unequip(slot)
		return
	}
	if cur, ok := p.equipment[slot]; ok && cur == item {
		return
	}
	p.equipment[slot] = item
	if shown := p.tracker.Shown(); len(shown) > 0 {
		it := item
		p.dispatch.UpdateEquipment(p.ID(), shown, slot, &it)
	}
}

func (p *Part) Unequip(slot crate.EquipmentSlot) {
	if _, ok := p.equipment[slot]; !ok {
		return
	}
	delete(p.equipment, slot)
	if shown := p.tracker.Shown(); len(shown) > 0 {
		p.dispatch.UpdateEquipment(p.ID(), shown, slot, nil)
	}
}

// ClearEquipment empties every slot.
func (p *Part) ClearEquipment() {
	for slot := range p.equipment {
		p.Unequip(slot)
	}
}

func (p *Part) pushPose() {
	if shown := p.tracker.Shown(); len(shown) > 0 {
		p.dispatch.UpdatePose(p.ID(), shown, p.pose)
	}
}
