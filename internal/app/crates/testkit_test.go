package crates

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"crateworks/internal/app/delivery"
	"crateworks/internal/app/keys"
	"crateworks/internal/app/ports"
	"crateworks/internal/app/schedule"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/reward"
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
	return out
}

type nopDispatch struct{}

func (nopDispatch) Show(string, []world.ObserverID, ports.PartState)                             {}
func (nopDispatch) Hide(string, []world.ObserverID)                                              {}
func (nopDispatch) UpdatePose(string, []world.ObserverID, crate.Pose)                            {}
func (nopDispatch) UpdateEquipment(string, []world.ObserverID, crate.EquipmentSlot, *crate.Item) {}

// countInventory keeps item totals per observer and material, with a slot
// budget per observer for CanFit.
type countInventory struct {
	free   map[world.ObserverID]int
	counts map[world.ObserverID]map[string]int
}

func newCountInventory() *countInventory {
	return &countInventory{free: map[world.ObserverID]int{}, counts: map[world.ObserverID]map[string]int{}}
}

func (c *countInventory) give(id world.ObserverID, material string, n int) {
	if c.counts[id] == nil {
		c.counts[id] = map[string]int{}
	}
	c.counts[id][material] += n
}

func (c *countInventory) CanFit(id world.ObserverID, items []crate.Item) bool {
	free, ok := c.free[id]
	return !ok || len(items) <= free
}

func (c *countInventory) Add(id world.ObserverID, items []crate.Item) error {
	if !c.CanFit(id, items) {
		return ports.ErrInventoryFull
	}
	for _, it := range items {
		c.give(id, it.Material, it.Amount)
	}
	return nil
}

func (c *countInventory) Count(id world.ObserverID, tmpl crate.Item) int {
	return c.counts[id][tmpl.Material]
}

func (c *countInventory) RemoveOne(id world.ObserverID, tmpl crate.Item) bool {
	if c.counts[id][tmpl.Material] == 0 {
		return false
	}
	c.counts[id][tmpl.Material]--
	return true
}

type recordingAnnouncer struct {
	notes      map[world.ObserverID][]string
	broadcasts []string
}

func (r *recordingAnnouncer) Notify(id world.ObserverID, msg string) {
	if r.notes == nil {
		r.notes = map[world.ObserverID][]string{}
	}
	r.notes[id] = append(r.notes[id], msg)
}

func (r *recordingAnnouncer) Broadcast(msg string) { r.broadcasts = append(r.broadcasts, msg) }

type countingMetrics struct {
	triggers map[string]int
	grants   int
	queued   int
	faults   int
}

func (m *countingMetrics) RecordTrigger(outcome string) {
	if m.triggers == nil {
		m.triggers = map[string]int{}
	}
	m.triggers[outcome]++
}

func (m *countingMetrics) RecordGrant(_, queued bool) {
	m.grants++
	if queued {
		m.queued++
	}
}

func (m *countingMetrics) RecordRedeemed(int) {}
func (m *countingMetrics) RecordFault()       { m.faults++ }

type memLedger struct{ recs []ports.GrantRecord }

func (l *memLedger) Record(rec ports.GrantRecord) error {
	l.recs = append(l.recs, rec)
	return nil
}

var (
	voteKey = crate.Key{Name: "vote", Item: crate.Item{Material: "TRIPWIRE_HOOK", Amount: 1}, Slot: 0}
	diamond = crate.Item{Material: "DIAMOND", Amount: 1}
	emerald = crate.Item{Material: "EMERALD", Amount: 2}
)

type harness struct {
	sched   *schedule.Scheduler
	reg     *Registry
	dir     *fakeDirectory
	inv     *countInventory
	ann     *recordingAnnouncer
	metrics *countingMetrics
	ledger  *memLedger
	bank    *keys.Bank
	catalog *keys.Catalog
	queue   *delivery.Queue
}

func newHarness(t *testing.T, cooldownTicks int) *harness {
	t.Helper()
	sched, err := schedule.New(time.Hour)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	t.Cleanup(sched.Close)

	h := &harness{
		sched:   sched,
		dir:     &fakeDirectory{online: map[world.ObserverID]world.Position{}},
		inv:     newCountInventory(),
		ann:     &recordingAnnouncer{},
		metrics: &countingMetrics{},
		ledger:  &memLedger{},
		bank:    keys.NewBank(),
		catalog: keys.NewCatalog(),
		queue:   delivery.NewQueue(nil, log.New(io.Discard, "", 0), nil),
	}
	t.Cleanup(h.queue.Close)
	if err := h.catalog.AddKey(voteKey); err != nil {
		t.Fatalf("add key: %v", err)
	}
	if err := h.catalog.AddTag(crate.Tag{Name: "shiny"}); err != nil {
		t.Fatalf("add tag: %v", err)
	}
	reg, err := NewRegistry(Deps{
		Scheduler:  sched,
		Directory:  h.dir,
		Dispatch:   nopDispatch{},
		Announcer:  h.ann,
		Inventory:  h.inv,
		Catalog:    h.catalog,
		Bank:       h.bank,
		Deliveries: h.queue,
		Ledger:     h.ledger,
		Metrics:    h.metrics,
		Selector:   reward.NewSelector(1, 2),
		Cooldown:   cooldownTicks,
		Logger:     log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	h.reg = reg
	return h
}

func (h *harness) join(id world.ObserverID) {
	h.dir.online[id] = world.Position{World: "w", X: 1, Y: 64}
}

func testDefinition(name string) crate.Definition {
	return crate.Definition{
		Name:        name,
		Size:        crate.SizeOne,
		Location:    world.Position{World: "w", Y: 64},
		Orientation: crate.EastWest,
		KeyName:     voteKey.Name,
		Prizes: []crate.Prize{
			{Slot: 0, Item: diamond, Weight: 50},
			{Slot: 1, Item: emerald, Weight: 1},
		},
	}
}

func (h *harness) mustCreate(t *testing.T, def crate.Definition) {
	t.Helper()
	if _, err := h.reg.Create(def); err != nil {
		t.Fatalf("create %s: %v", def.Name, err)
	}
}

// runToIdle steps a construct until its cycle ends.
func (h *harness) runToIdle(t *testing.T, name string) {
	t.Helper()
	ctl, ok := h.reg.Controller(name)
	if !ok {
		t.Fatalf("no controller for %s", name)
	}
	for i := 0; i < 10000; i++ {
		ctl.Step()
		if ctl.Phase().IsIdle() {
			return
		}
	}
	t.Fatalf("crate %s never returned to idle, phase=%v", name, ctl.Phase())
}

type memCrateRepo struct {
	defs    map[string]crate.Definition
	failErr error
}

func newMemCrateRepo() *memCrateRepo { return &memCrateRepo{defs: map[string]crate.Definition{}} }

func (m *memCrateRepo) List(context.Context) ([]crate.Definition, error) {
	out := make([]crate.Definition, 0, len(m.defs))
	for _, d := range m.defs {
		out = append(out, d)
	}
	return out, nil
}

func (m *memCrateRepo) Get(_ context.Context, name string) (crate.Definition, error) {
	d, ok := m.defs[name]
	if !ok {
		return crate.Definition{}, ports.ErrNotFound
	}
	return d, nil
}

func (m *memCrateRepo) Create(_ context.Context, def crate.Definition) error {
	if m.failErr != nil {
		return m.failErr
	}
	if _, ok := m.defs[def.Name]; ok {
		return ports.ErrConflict
	}
	m.defs[def.Name] = def.Clone()
	return nil
}

func (m *memCrateRepo) Save(_ context.Context, def crate.Definition) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.defs[def.Name] = def.Clone()
	return nil
}

func (m *memCrateRepo) Delete(_ context.Context, name string) error {
	if _, ok := m.defs[name]; !ok {
		return ports.ErrNotFound
	}
	delete(m.defs, name)
	return nil
}

type memKeyRepo struct{ keys []crate.Key }

func (m *memKeyRepo) List(context.Context) ([]crate.Key, error) { return m.keys, nil }

func (m *memKeyRepo) Create(_ context.Context, k crate.Key) error {
	for _, existing := range m.keys {
		if existing.Name == k.Name {
			return ports.ErrConflict
		}
	}
	m.keys = append(m.keys, k)
	return nil
}

func (m *memKeyRepo) Delete(context.Context, string) error { return nil }

type memTagRepo struct{ tags []crate.Tag }

func (m *memTagRepo) List(context.Context) ([]crate.Tag, error) { return m.tags, nil }

func (m *memTagRepo) Create(_ context.Context, t crate.Tag) error {
	for _, existing := range m.tags {
		if existing.Name == t.Name {
			return ports.ErrConflict
		}
	}
	m.tags = append(m.tags, t)
	return nil
}

func (m *memTagRepo) Delete(context.Context, string) error { return nil }
