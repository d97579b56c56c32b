package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	memoryinv "crateworks/internal/adapter/inventory/memory"
	"crateworks/internal/adapter/world/presence"
	"crateworks/internal/app/crates"
	"crateworks/internal/app/keys"
	"crateworks/internal/app/ports"
	"crateworks/internal/app/schedule"
	"crateworks/internal/config"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

func TestResolveConfigPath_UsesEnv(t *testing.T) {
	t.Setenv("CRATEWORKS_CONFIG", "/etc/crateworks.yaml")
	if got := resolveConfigPath(); got != "/etc/crateworks.yaml" {
		t.Fatalf("resolveConfigPath()=%q want %q", got, "/etc/crateworks.yaml")
	}
}

func TestResolveConfigPath_FallsBackToWorkingDir(t *testing.T) {
	t.Setenv("CRATEWORKS_CONFIG", "")
	dir := t.TempDir()
	prevWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	defer func() {
		_ = os.Chdir(prevWD)
	}()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	if got := resolveConfigPath(); got != "" {
		t.Fatalf("resolveConfigPath()=%q want empty", got)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if got := resolveConfigPath(); got != "config.yaml" {
		t.Fatalf("resolveConfigPath()=%q want %q", got, "config.yaml")
	}
}

func TestBuildStorage_Memory(t *testing.T) {
	s, err := buildStorage(context.Background(), config.Storage{Driver: config.DriverMemory}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("build storage: %v", err)
	}
	defer s.close()
	if s.tx == nil || s.crates == nil || s.keys == nil || s.tags == nil || s.bank == nil || s.deliveries == nil {
		t.Fatalf("memory storage left a repository unset: %+v", s)
	}
}

func TestBuildStorage_SQLitePersistsDeliveries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cw.db")
	cfg := config.Storage{Driver: config.DriverSQLite, SQLitePath: path}
	logger := log.New(io.Discard, "", 0)

	s, err := buildStorage(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("build storage: %v", err)
	}
	rec := ports.DeliveryRecord{
		ID:        "d1",
		Observer:  "alice",
		Crate:     "vote",
		Items:     []crate.Item{{Material: "DIAMOND", Amount: 1}},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := s.deliveries.Append(context.Background(), rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := buildStorage(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.close()
	got, err := reopened.deliveries.ListPending(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "d1" {
		t.Fatalf("unexpected pending rows: %+v", got)
	}
}

func TestSelectorFor_SeedIsDeterministic(t *testing.T) {
	if sel := selectorFor(0); sel.Rand != nil {
		t.Fatalf("zero seed should leave the source to the registry")
	}
	a, b := selectorFor(42), selectorFor(42)
	for i := 0; i < 5; i++ {
		if x, y := a.Rand.Float64(), b.Rand.Float64(); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
}

type showCounter struct{ shows int }

func (s *showCounter) Show(string, []world.ObserverID, ports.PartState)                             { s.shows++ }
func (s *showCounter) Hide(string, []world.ObserverID)                                              {}
func (s *showCounter) UpdatePose(string, []world.ObserverID, crate.Pose)                            {}
func (s *showCounter) UpdateEquipment(string, []world.ObserverID, crate.EquipmentSlot, *crate.Item) {}

func TestForgetOnTick_ReshowsOnNextPass(t *testing.T) {
	sched, err := schedule.New(time.Hour)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	defer sched.Close()
	origin := world.Position{World: "overworld", Y: 64}
	dir := presence.New()
	if err := dir.Connect("alice", origin.Offset(1, 0, 0)); err != nil {
		t.Fatalf("connect: %v", err)
	}
	catalog := keys.NewCatalog()
	if err := catalog.AddKey(crate.Key{Name: "vote", Item: crate.Item{Material: "TRIPWIRE_HOOK", Amount: 1}}); err != nil {
		t.Fatalf("add key: %v", err)
	}
	dispatch := &showCounter{}
	registry, err := crates.NewRegistry(crates.Deps{
		Scheduler: sched,
		Directory: dir,
		Dispatch:  dispatch,
		Inventory: memoryinv.New(memoryinv.DefaultSlots),
		Catalog:   catalog,
		Bank:      keys.NewBank(),
		Logger:    log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if _, err := registry.Create(crate.Definition{
		Name:        "vote",
		Size:        crate.SizeOne,
		Location:    origin,
		Orientation: crate.EastWest,
		KeyName:     "vote",
		Prizes:      []crate.Prize{{Slot: 0, Item: crate.Item{Material: "DIAMOND", Amount: 1}, Weight: 50}},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	sched.Step()
	first := dispatch.shows
	if first == 0 {
		t.Fatalf("nothing shown to a nearby observer")
	}
	sched.Step()
	if dispatch.shows != first {
		t.Fatalf("second pass re-sent shows: got=%d want=%d", dispatch.shows, first)
	}

	forgetOnTick(sched, registry)("alice")
	sched.Step()
	sched.Step()
	if got, want := dispatch.shows, 2*first; got != want {
		t.Fatalf("shows after forget got=%d want=%d", got, want)
	}
}
