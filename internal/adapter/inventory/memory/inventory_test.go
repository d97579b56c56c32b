package memory

import (
	"errors"
	"testing"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"

	"github.com/google/go-cmp/cmp"
)

var (
	diamond = crate.Item{Material: "DIAMOND", Amount: 1}
	hook    = crate.Item{Material: "TRIPWIRE_HOOK", Amount: 1, Name: "Vote Key"}
)

func TestInventory_StacksBeforeUsingSlots(t *testing.T) {
	inv := New(2)
	if err := inv.Add("alice", []crate.Item{{Material: "DIAMOND", Amount: 60}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := inv.Add("alice", []crate.Item{{Material: "DIAMOND", Amount: 10}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	want := []crate.Item{{Material: "DIAMOND", Amount: 64}, {Material: "DIAMOND", Amount: 6}}
	if diff := cmp.Diff(want, inv.Contents("alice")); diff != "" {
		t.Fatalf("contents mismatch (-want +got):\n%s", diff)
	}
	if got := inv.Count("alice", diamond); got != 70 {
		t.Fatalf("count got=%d want=70", got)
	}
}

func TestInventory_AddIsAllOrNothing(t *testing.T) {
	inv := New(1)
	if err := inv.Add("alice", []crate.Item{hook}); err != nil {
		t.Fatalf("add: %v", err)
	}
	batch := []crate.Item{hook, diamond}
	if inv.CanFit("alice", batch) {
		t.Fatalf("batch should not fit in one slot")
	}
	if err := inv.Add("alice", batch); !errors.Is(err, ports.ErrInventoryFull) {
		t.Fatalf("expected ErrInventoryFull, got=%v", err)
	}
	if got := inv.Count("alice", hook); got != 1 {
		t.Fatalf("partial add leaked: hook count got=%d want=1", got)
	}
}

func TestInventory_NamedItemsStackSeparately(t *testing.T) {
	inv := New(4)
	plain := crate.Item{Material: "TRIPWIRE_HOOK", Amount: 1}
	_ = inv.Add("alice", []crate.Item{plain, hook})
	if got := inv.Count("alice", hook); got != 1 {
		t.Fatalf("named count got=%d want=1", got)
	}
	if got := inv.FreeSlots("alice"); got != 2 {
		t.Fatalf("free slots got=%d want=2", got)
	}
}

func TestInventory_RemoveOne(t *testing.T) {
	inv := New(4)
	_ = inv.Add("alice", []crate.Item{{Material: "TRIPWIRE_HOOK", Amount: 2, Name: "Vote Key"}})
	if !inv.RemoveOne("alice", hook) || !inv.RemoveOne("alice", hook) {
		t.Fatalf("expected two removals")
	}
	if inv.RemoveOne("alice", hook) {
		t.Fatalf("removed from empty inventory")
	}
	if got := len(inv.Contents("alice")); got != 0 {
		t.Fatalf("empty stack left behind, got %d stacks", got)
	}
}
