package phase

import (
	"errors"
	"math/rand/v2"
	"sort"
	"testing"
	"time"

	"crateworks/internal/app/ports"
	"crateworks/internal/app/schedule"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

type fakeDirectory struct {
	online map[world.ObserverID]world.Position
}

func (d *fakeDirectory) Position(id world.ObserverID) (world.Position, bool) {
	p, ok := d.online[id]
	return p, ok
}

func (d *fakeDirectory) Connected() []ports.ObserverPresence {
	out := make([]ports.ObserverPresence, 0, len(d.online))
	for id, p := range d.online {
		out = append(out, ports.ObserverPresence{ID: id, Position: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type nopDispatch struct{}

func (nopDispatch) Show(string, []world.ObserverID, ports.PartState)                             {}
func (nopDispatch) Hide(string, []world.ObserverID)                                              {}
func (nopDispatch) UpdatePose(string, []world.ObserverID, crate.Pose)                            {}
func (nopDispatch) UpdateEquipment(string, []world.ObserverID, crate.EquipmentSlot, *crate.Item) {}

type fakeInventory struct {
	added [][]crate.Item
	err   error
}

func (f *fakeInventory) CanFit(world.ObserverID, []crate.Item) bool { return true }
func (f *fakeInventory) Count(world.ObserverID, crate.Item) int     { return 0 }
func (f *fakeInventory) RemoveOne(world.ObserverID, crate.Item) bool {
	return false
}

func (f *fakeInventory) Add(_ world.ObserverID, items []crate.Item) error {
	if f.err != nil {
		return f.err
	}
	f.added = append(f.added, items)
	return nil
}

type recordingAnnouncer struct {
	notes      []string
	broadcasts []string
}

func (r *recordingAnnouncer) Notify(_ world.ObserverID, msg string) { r.notes = append(r.notes, msg) }
func (r *recordingAnnouncer) Broadcast(msg string)                  { r.broadcasts = append(r.broadcasts, msg) }

type recordingEffects struct {
	sounds []string
}

func (r *recordingEffects) Particles(world.Position, int, ports.Color) {}
func (r *recordingEffects) Sound(_ world.Position, name string)        { r.sounds = append(r.sounds, name) }

type harness struct {
	sched     *schedule.Scheduler
	dir       *fakeDirectory
	inventory *fakeInventory
	announcer *recordingAnnouncer
	effects   *recordingEffects
	outcomes  []Outcome
	ctrl      *Controller
}

var testOrigin = world.Position{World: "w", Y: 64}

func testDefinition() crate.Definition {
	return crate.Definition{
		Name:        "vote",
		Size:        crate.SizeOne,
		Location:    testOrigin,
		Orientation: crate.EastWest,
		KeyName:     "vote-key",
		Skin: [crate.SkinParts]crate.Item{
			{Material: "CHEST", Amount: 1},
			{Material: "ENDER_CHEST", Amount: 1},
			{Material: "GOLD_BLOCK", Amount: 1},
			{Material: "DIAMOND_BLOCK", Amount: 1},
		},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sched, err := schedule.New(time.Millisecond)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	h := &harness{
		sched:     sched,
		dir:       &fakeDirectory{online: map[world.ObserverID]world.Position{"alice": testOrigin.Offset(2, 0, 0)}},
		inventory: &fakeInventory{},
		announcer: &recordingAnnouncer{},
		effects:   &recordingEffects{},
	}
	ctrl, err := New(testDefinition(), Deps{
		Scheduler: sched,
		Directory: h.dir,
		Dispatch:  nopDispatch{},
		Effects:   h.effects,
		Announcer: h.announcer,
		Inventory: h.inventory,
		Policy:    world.DefaultPerceptionPolicy(),
		Rand:      rand.New(rand.NewPCG(1, 2)),
	}, SettlerFunc(func(out Outcome) { h.outcomes = append(h.outcomes, out) }))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	h.ctrl = ctrl
	return h
}

func testBatch() []crate.Prize {
	return []crate.Prize{
		{Slot: 0, Item: crate.Item{Material: "DIAMOND", Amount: 2}, Weight: 50},
		{Slot: 1, Item: crate.Item{Material: "NETHER_STAR", Amount: 1}, Weight: 1, Rare: true},
	}
}

// runCycle steps the controller until it is idle again and returns the
// sequence of distinct phase kinds it went through.
func runCycle(t *testing.T, c *Controller, each func(before crate.Phase)) []crate.PhaseKind {
	t.Helper()
	var kinds []crate.PhaseKind
	for i := 0; i < 1000; i++ {
		before := c.Phase()
		if len(kinds) == 0 || kinds[len(kinds)-1] != before.Kind {
			kinds = append(kinds, before.Kind)
		}
		if i > 0 && before.IsIdle() {
			return kinds
		}
		if each != nil {
			each(before)
		}
		c.Step()
	}
	t.Fatalf("cycle did not finish; phase=%s", c.Phase())
	return nil
}

var errInventoryDown = errors.New("inventory down")
