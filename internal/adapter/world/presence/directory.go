package presence

import (
	"fmt"
	"sort"
	"sync"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/world"
)

// Directory is the in-process record of connected observers. The tick
// goroutine reads it every tick; sessions write it.
type Directory struct {
	mu sync.RWMutex
	at map[world.ObserverID]world.Position
}

func New() *Directory {
	return &Directory{at: map[world.ObserverID]world.Position{}}
}

func (d *Directory) Connect(id world.ObserverID, pos world.Position) error {
	if err := pos.Validate(); err != nil {
		return fmt.Errorf("connect %s: %w", id, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.at[id] = pos
	return nil
}

func (d *Directory) Move(id world.ObserverID, pos world.Position) error {
	if err := pos.Validate(); err != nil {
		return fmt.Errorf("move %s: %w", id, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.at[id]; !ok {
		return ports.ErrOffline
	}
	d.at[id] = pos
	return nil
}

func (d *Directory) Disconnect(id world.ObserverID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.at[id]
	delete(d.at, id)
	return ok
}

func (d *Directory) Position(id world.ObserverID) (world.Position, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	pos, ok := d.at[id]
	return pos, ok
}

// Connected lists observers sorted by id.
func (d *Directory) Connected() []ports.ObserverPresence {
	d.mu.RLock()
	out := make([]ports.ObserverPresence, 0, len(d.at))
	for id, pos := range d.at {
		out = append(out, ports.ObserverPresence{ID: id, Position: pos})
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.at)
}
