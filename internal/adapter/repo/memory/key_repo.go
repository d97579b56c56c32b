package memory

import (
	"context"
	"sort"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"
)

type KeyRepo struct {
	store *Store
}

func NewKeyRepo(store *Store) KeyRepo {
	return KeyRepo{store: store}
}

func (r KeyRepo) List(_ context.Context) ([]crate.Key, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]crate.Key, 0, len(r.store.keys))
	for _, k := range r.store.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}

func (r KeyRepo) Create(_ context.Context, k crate.Key) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.keys[k.Name]; exists {
		return ports.ErrConflict
	}
	for _, other := range r.store.keys {
		if other.Slot == k.Slot {
			return ports.ErrConflict
		}
	}
	r.store.keys[k.Name] = k
	return nil
}

func (r KeyRepo) Delete(_ context.Context, name string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.keys[name]; !ok {
		return ports.ErrNotFound
	}
	delete(r.store.keys, name)
	return nil
}

type TagRepo struct {
	store *Store
}

func NewTagRepo(store *Store) TagRepo {
	return TagRepo{store: store}
}

func (r TagRepo) List(_ context.Context) ([]crate.Tag, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]crate.Tag, 0, len(r.store.tags))
	for _, t := range r.store.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r TagRepo) Create(_ context.Context, t crate.Tag) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.tags[t.Name]; exists {
		return ports.ErrConflict
	}
	r.store.tags[t.Name] = t
	return nil
}

func (r TagRepo) Delete(_ context.Context, name string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tags[name]; !ok {
		return ports.ErrNotFound
	}
	delete(r.store.tags, name)
	return nil
}
