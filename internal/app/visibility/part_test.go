package visibility

import (
	"testing"

	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

func TestPart_PushesUpdatesOnlyToShownObservers(t *testing.T) {
	dir := newFakeDirectory()
	rec := &recordingDispatch{}
	part, err := NewPart("crate:1", crate.Pose{Position: origin}, dir, world.DefaultPerceptionPolicy(), rec)
	if err != nil {
		t.Fatalf("new part: %v", err)
	}

	part.Equip(crate.SlotHelmet, crate.Item{Material: "CHEST", Amount: 1})
	part.Teleport(origin.Offset(0, 1, 0))
	if len(rec.equipment) != 0 || len(rec.poses) != 0 {
		t.Fatalf("updates sent with nobody watching")
	}

	dir.put("alice", near(1))
	part.Tick()
	if rec.shows != 1 {
		t.Fatalf("show calls: got=%d want=1", rec.shows)
	}
	if got := rec.lastShow.Equipment[crate.SlotHelmet].Material; got != "CHEST" {
		t.Fatalf("show must carry current equipment: got=%q", got)
	}

	part.Teleport(origin.Offset(0, 2, 0))
	part.Unequip(crate.SlotHelmet)
	if len(rec.poses) != 1 || len(rec.equipment) != 1 || rec.equipment[0] != nil {
		t.Fatalf("unexpected updates: poses=%d equipment=%v", len(rec.poses), rec.equipment)
	}

	part.Stop()
	if rec.hides != 1 {
		t.Fatalf("hide calls: got=%d want=1", rec.hides)
	}
}

func TestPart_TeleportSamePositionIsNoop(t *testing.T) {
	dir := newFakeDirectory()
	dir.put("alice", near(1))
	rec := &recordingDispatch{}
	part, _ := NewPart("crate:2", crate.Pose{Position: origin}, dir, world.DefaultPerceptionPolicy(), rec)
	part.Tick()
	part.Teleport(origin)
	if len(rec.poses) != 0 {
		t.Fatalf("no-op teleport pushed a pose")
	}
}
