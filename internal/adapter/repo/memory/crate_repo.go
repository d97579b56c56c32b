package memory

import (
	"context"
	"sort"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"
)

type CrateRepo struct {
	store *Store
}

func NewCrateRepo(store *Store) CrateRepo {
	return CrateRepo{store: store}
}

func (r CrateRepo) List(_ context.Context) ([]crate.Definition, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]crate.Definition, 0, len(r.store.crates))
	for _, def := range r.store.crates {
		out = append(out, def.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r CrateRepo) Get(_ context.Context, name string) (crate.Definition, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	def, ok := r.store.crates[name]
	if !ok {
		return crate.Definition{}, ports.ErrNotFound
	}
	return def.Clone(), nil
}

func (r CrateRepo) Create(_ context.Context, def crate.Definition) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.crates[def.Name]; exists {
		return ports.ErrConflict
	}
	r.store.crates[def.Name] = def.Clone()
	return nil
}

func (r CrateRepo) Save(_ context.Context, def crate.Definition) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.crates[def.Name] = def.Clone()
	return nil
}

func (r CrateRepo) Delete(_ context.Context, name string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.crates[name]; !ok {
		return ports.ErrNotFound
	}
	delete(r.store.crates, name)
	return nil
}
