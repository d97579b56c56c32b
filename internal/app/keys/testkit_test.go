package keys

import (
	"context"
	"errors"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

type onlineSet map[world.ObserverID]bool

func (o onlineSet) Position(id world.ObserverID) (world.Position, bool) {
	return world.Position{World: "w"}, o[id]
}

func (o onlineSet) Connected() []ports.ObserverPresence { return nil }

// countInventory tracks item totals per material and a slot budget.
type countInventory struct {
	free   int
	counts map[string]int
}

func newCountInventory(free int) *countInventory {
	return &countInventory{free: free, counts: map[string]int{}}
}

func (c *countInventory) CanFit(_ world.ObserverID, items []crate.Item) bool {
	return len(items) <= c.free
}

func (c *countInventory) Add(_ world.ObserverID, items []crate.Item) error {
	if len(items) > c.free {
		return ports.ErrInventoryFull
	}
	for _, it := range items {
		c.counts[it.Material] += it.Amount
	}
	return nil
}

func (c *countInventory) Count(_ world.ObserverID, tmpl crate.Item) int { return c.counts[tmpl.Material] }

func (c *countInventory) RemoveOne(_ world.ObserverID, tmpl crate.Item) bool {
	if c.counts[tmpl.Material] == 0 {
		return false
	}
	c.counts[tmpl.Material]--
	return true
}

type fakeUsage struct {
	keys map[string][]string
	tags map[string][]string
}

func (f fakeUsage) CratesUsingKey(name string) []string { return f.keys[name] }
func (f fakeUsage) CratesUsingTag(name string) []string { return f.tags[name] }

type fakeBankRepo struct {
	rows    []ports.BankedKeys
	upserts [][]ports.BankedKeys
	fail    bool
}

func (f *fakeBankRepo) LoadAll(context.Context) ([]ports.BankedKeys, error) { return f.rows, nil }

func (f *fakeBankRepo) Upsert(_ context.Context, rows []ports.BankedKeys) error {
	if f.fail {
		return errors.New("db down")
	}
	f.upserts = append(f.upserts, rows)
	return nil
}

var voteKey = crate.Key{Name: "vote", Item: crate.Item{Material: "TRIPWIRE_HOOK", Amount: 1, Name: "Vote Key"}, Slot: 0}

func newUseCase(inv *countInventory, online onlineSet) UseCase {
	cat := NewCatalog()
	if err := cat.AddKey(voteKey); err != nil {
		panic(err)
	}
	return UseCase{Catalog: cat, Bank: NewBank(), Inventory: inv, Directory: online}
}
