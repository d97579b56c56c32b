package crates

import (
	"context"
	"testing"

	"crateworks/internal/domain/crate"
)

func TestBootstrap_ImportSkipsExistingEntries(t *testing.T) {
	keyRepo := &memKeyRepo{keys: []crate.Key{voteKey}}
	tagRepo := &memTagRepo{}
	crateRepo := newMemCrateRepo()
	b := Bootstrap{KeyRepo: keyRepo, TagRepo: tagRepo, CrateRepo: crateRepo}

	seed := Seed{
		Keys:   []crate.Key{voteKey, {Name: "daily", Item: crate.Item{Material: "NAME_TAG", Amount: 1}, Slot: 1}},
		Tags:   []crate.Tag{{Name: "shiny"}},
		Crates: []crate.Definition{testDefinition("vote")},
	}
	created, err := b.Import(context.Background(), seed)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if created != 3 {
		t.Fatalf("created got=%d want=3", created)
	}
	if again, _ := b.Import(context.Background(), seed); again != 0 {
		t.Fatalf("second import created %d entries, want 0", again)
	}
}

func TestBootstrap_LoadSkipsInvalidCrates(t *testing.T) {
	h := newHarness(t, 0)
	crateRepo := newMemCrateRepo()
	crateRepo.defs["vote"] = testDefinition("vote")
	orphan := testDefinition("orphan")
	orphan.KeyName = "gone"
	crateRepo.defs["orphan"] = orphan

	b := Bootstrap{
		KeyRepo:   &memKeyRepo{keys: []crate.Key{{Name: "daily", Item: crate.Item{Material: "NAME_TAG", Amount: 1}, Slot: 1}}},
		TagRepo:   &memTagRepo{tags: []crate.Tag{{Name: "legendary"}}},
		CrateRepo: crateRepo,
		Catalog:   h.catalog,
		Registry:  h.reg,
	}
	rep, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rep.Keys != 1 || rep.Tags != 1 || rep.Crates != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if len(rep.Skipped) != 1 || rep.Skipped[0] != "orphan" {
		t.Fatalf("skipped got=%v want=[orphan]", rep.Skipped)
	}
	if _, ok := h.catalog.Key("daily"); !ok {
		t.Fatalf("loaded key missing from catalog")
	}
}
