package crate

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrPoolFull       = errors.New("reward pool is full")
	ErrSlotOutOfRange = errors.New("slot out of range")
	ErrSlotOccupied   = errors.New("slot occupied")
	ErrPrizeNotFound  = errors.New("prize not found")
)

// Pool is a capacity-bounded set of prizes keyed by slot.
type Pool struct {
	capacity int
	prizes   map[int]Prize
}

func NewPool(capacity int) *Pool {
	return &Pool{capacity: capacity, prizes: map[int]Prize{}}
}

func (p *Pool) Capacity() int { return p.capacity }
func (p *Pool) Len() int      { return len(p.prizes) }
func (p *Pool) Empty() bool   { return len(p.prizes) == 0 }

func (p *Pool) Get(slot int) (Prize, bool) {
	prize, ok := p.prizes[slot]
	if !ok {
		return Prize{}, false
	}
	return prize.Clone(), true
}

func (p *Pool) Add(prize Prize) error {
	if err := prize.Validate(); err != nil {
		return err
	}
	if prize.Slot >= p.capacity {
		return fmt.Errorf("%w: slot %d capacity %d", ErrSlotOutOfRange, prize.Slot, p.capacity)
	}
	if _, ok := p.prizes[prize.Slot]; ok {
		return fmt.Errorf("%w: slot %d", ErrSlotOccupied, prize.Slot)
	}
	if len(p.prizes) >= p.capacity {
		return ErrPoolFull
	}
	p.prizes[prize.Slot] = prize.Clone()
	return nil
}

// Put replaces the prize at its slot.
func (p *Pool) Put(prize Prize) error {
	if err := prize.Validate(); err != nil {
		return err
	}
	if _, ok := p.prizes[prize.Slot]; !ok {
		return fmt.Errorf("%w: slot %d", ErrPrizeNotFound, prize.Slot)
	}
	p.prizes[prize.Slot] = prize.Clone()
	return nil
}

func (p *Pool) Remove(slot int) (Prize, error) {
	prize, ok := p.prizes[slot]
	if !ok {
		return Prize{}, fmt.Errorf("%w: slot %d", ErrPrizeNotFound, slot)
	}
	delete(p.prizes, slot)
	return prize, nil
}

// Resize changes the capacity. Prizes whose slot no longer fits are evicted
// first, then the highest slots until the pool fits. Evicted prizes are
// returned in eviction order.
func (p *Pool) Resize(capacity int) []Prize {
	if capacity < 0 {
		capacity = 0
	}
	p.capacity = capacity

	slots := p.slots()
	var evicted []Prize
	kept := slots[:0]
	for _, slot := range slots {
		if slot >= capacity {
			evicted = append(evicted, p.prizes[slot])
			delete(p.prizes, slot)
			continue
		}
		kept = append(kept, slot)
	}
	for i := len(kept) - 1; i >= 0 && len(p.prizes) > capacity; i-- {
		evicted = append(evicted, p.prizes[kept[i]])
		delete(p.prizes, kept[i])
	}
	return evicted
}

// Candidates lists the prizes in slot order.
func (p *Pool) Candidates() []Prize {
	slots := p.slots()
	out := make([]Prize, 0, len(slots))
	for _, slot := range slots {
		out = append(out, p.prizes[slot].Clone())
	}
	return out
}

// UsesTag reports whether any prize references the tag.
func (p *Pool) UsesTag(name string) bool {
	for _, prize := range p.prizes {
		for _, t := range prize.Tags {
			if t == name {
				return true
			}
		}
	}
	return false
}

func (p *Pool) Clone() *Pool {
	out := NewPool(p.capacity)
	for slot, prize := range p.prizes {
		out.prizes[slot] = prize.Clone()
	}
	return out
}

func (p *Pool) slots() []int {
	slots := make([]int, 0, len(p.prizes))
	for slot := range p.prizes {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots
}
