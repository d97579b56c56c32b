package memory

import (
	"fmt"
	"sync"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

const DefaultSlots = 36

// Inventory is a slot-bounded per-observer item store. Items merge into
// stacks of the same material and name up to crate.MaxStack.
type Inventory struct {
	slots int

	mu   sync.Mutex
	bags map[world.ObserverID][]crate.Item
}

func New(slots int) *Inventory {
	if slots <= 0 {
		slots = DefaultSlots
	}
	return &Inventory{slots: slots, bags: map[world.ObserverID][]crate.Item{}}
}

func (inv *Inventory) CanFit(observer world.ObserverID, items []crate.Item) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	_, ok := inv.merge(inv.bags[observer], items)
	return ok
}

// Add puts every item in or nothing at all.
func (inv *Inventory) Add(observer world.ObserverID, items []crate.Item) error {
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("add %s: %w", it.Material, err)
		}
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	bag, ok := inv.merge(inv.bags[observer], items)
	if !ok {
		return ports.ErrInventoryFull
	}
	inv.bags[observer] = bag
	return nil
}

func (inv *Inventory) Count(observer world.ObserverID, template crate.Item) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	n := 0
	for _, st := range inv.bags[observer] {
		if st.Stacks(template) {
			n += st.Amount
		}
	}
	return n
}

func (inv *Inventory) RemoveOne(observer world.ObserverID, template crate.Item) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	bag := inv.bags[observer]
	for i, st := range bag {
		if !st.Stacks(template) {
			continue
		}
		if st.Amount > 1 {
			bag[i].Amount--
		} else {
			bag = append(bag[:i], bag[i+1:]...)
		}
		inv.bags[observer] = bag
		return true
	}
	return false
}

// Contents returns a copy of the observer's stacks in slot order.
func (inv *Inventory) Contents(observer world.ObserverID) []crate.Item {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return crate.CloneItems(inv.bags[observer])
}

func (inv *Inventory) FreeSlots(observer world.ObserverID) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.slots - len(inv.bags[observer])
}

// merge returns bag with items added, topping up existing stacks first.
func (inv *Inventory) merge(bag []crate.Item, items []crate.Item) ([]crate.Item, bool) {
	out := crate.CloneItems(bag)
	for _, it := range items {
		left := it.Amount
		for i := range out {
			if left == 0 {
				break
			}
			if !out[i].Stacks(it) || out[i].Amount >= crate.MaxStack {
				continue
			}
			take := min(crate.MaxStack-out[i].Amount, left)
			out[i].Amount += take
			left -= take
		}
		for left > 0 {
			if len(out) >= inv.slots {
				return bag, false
			}
			st := it
			st.Amount = min(crate.MaxStack, left)
			out = append(out, st)
			left -= st.Amount
		}
	}
	return out, true
}
