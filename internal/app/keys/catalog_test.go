package keys

import (
	"errors"
	"fmt"
	"testing"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"
)

func TestCatalog_AddKeyRejectsDuplicatesAndSlotClashes(t *testing.T) {
	c := NewCatalog()
	if err := c.AddKey(voteKey); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.AddKey(voteKey); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("expected conflict for duplicate name, got=%v", err)
	}
	clash := voteKey
	clash.Name = "other"
	if err := c.AddKey(clash); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("expected conflict for slot clash, got=%v", err)
	}
}

func TestCatalog_FullAtMaxKeys(t *testing.T) {
	c := NewCatalog()
	for i := 0; i < crate.MaxKeys; i++ {
		k := crate.Key{Name: fmt.Sprintf("k%d", i), Item: voteKey.Item, Slot: i}
		if err := c.AddKey(k); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	if _, ok := c.FreeSlot(); ok {
		t.Fatalf("expected no free slot")
	}
	k := crate.Key{Name: "extra", Item: voteKey.Item, Slot: 3}
	if err := c.AddKey(k); !errors.Is(err, ErrCatalogFull) {
		t.Fatalf("expected ErrCatalogFull, got=%v", err)
	}
}

func TestCatalog_KeysInSlotOrder(t *testing.T) {
	c := NewCatalog()
	for _, k := range []crate.Key{
		{Name: "c", Item: voteKey.Item, Slot: 9},
		{Name: "a", Item: voteKey.Item, Slot: 2},
		{Name: "b", Item: voteKey.Item, Slot: 5},
	} {
		if err := c.AddKey(k); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	got := c.Keys()
	if got[0].Name != "a" || got[1].Name != "b" || got[2].Name != "c" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if slot, _ := c.FreeSlot(); slot != 0 {
		t.Fatalf("free slot=%d want=0", slot)
	}
}

func TestCatalog_CheckTags(t *testing.T) {
	c := NewCatalog()
	if err := c.AddTag(crate.Tag{Name: "legendary"}); err != nil {
		t.Fatalf("add tag: %v", err)
	}
	if err := c.CheckTags([]string{"legendary"}); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := c.CheckTags([]string{"legendary", "mythic"}); !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("expected ErrUnknownTag, got=%v", err)
	}
}
