package keys

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"
)

var (
	ErrCatalogFull = errors.New("key catalog is full")
	ErrUnknownKey  = errors.New("unknown key")
	ErrUnknownTag  = errors.New("unknown tag")
)

// Catalog holds key templates and prize tags.
type Catalog struct {
	mu   sync.RWMutex
	keys map[string]crate.Key
	tags map[string]crate.Tag
}

func NewCatalog() *Catalog {
	return &Catalog{keys: map[string]crate.Key{}, tags: map[string]crate.Tag{}}
}

func (c *Catalog) AddKey(k crate.Key) error {
	if err := k.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.keys[k.Name]; ok {
		return fmt.Errorf("%w: key %q exists", ports.ErrConflict, k.Name)
	}
	if len(c.keys) >= crate.MaxKeys {
		return ErrCatalogFull
	}
	for _, other := range c.keys {
		if other.Slot == k.Slot {
			return fmt.Errorf("%w: slot %d used by key %q", ports.ErrConflict, k.Slot, other.Name)
		}
	}
	c.keys[k.Name] = k
	return nil
}

func (c *Catalog) RemoveKey(name string) (crate.Key, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, ok := c.keys[name]
	if !ok {
		return crate.Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	delete(c.keys, name)
	return k, nil
}

func (c *Catalog) Key(name string) (crate.Key, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.keys[name]
	return k, ok
}

// Keys lists templates in menu slot order.
func (c *Catalog) Keys() []crate.Key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]crate.Key, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// FreeSlot returns the lowest unused menu slot.
func (c *Catalog) FreeSlot() (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	used := make(map[int]bool, len(c.keys))
	for _, k := range c.keys {
		used[k.Slot] = true
	}
	for slot := 0; slot < crate.MaxKeys; slot++ {
		if !used[slot] {
			return slot, true
		}
	}
	return 0, false
}

func (c *Catalog) AddTag(t crate.Tag) error {
	if err := t.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tags[t.Name]; ok {
		return fmt.Errorf("%w: tag %q exists", ports.ErrConflict, t.Name)
	}
	c.tags[t.Name] = t
	return nil
}

func (c *Catalog) RemoveTag(name string) (crate.Tag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tags[name]
	if !ok {
		return crate.Tag{}, fmt.Errorf("%w: %q", ErrUnknownTag, name)
	}
	delete(c.tags, name)
	return t, nil
}

func (c *Catalog) Tags() []crate.Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]crate.Tag, 0, len(c.tags))
	for _, t := range c.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CheckTags fails on the first name that is not a known tag.
func (c *Catalog) CheckTags(names []string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, n := range names {
		if _, ok := c.tags[n]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownTag, n)
		}
	}
	return nil
}
