package memory

import (
	"context"
	"sort"

	"crateworks/internal/app/ports"
)

type KeyBankRepo struct {
	store *Store
}

func NewKeyBankRepo(store *Store) KeyBankRepo {
	return KeyBankRepo{store: store}
}

func (r KeyBankRepo) LoadAll(_ context.Context) ([]ports.BankedKeys, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]ports.BankedKeys, 0, len(r.store.bank))
	for k, n := range r.store.bank {
		out = append(out, ports.BankedKeys{Observer: k.observer, Key: k.key, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Observer != out[j].Observer {
			return out[i].Observer < out[j].Observer
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (r KeyBankRepo) Upsert(_ context.Context, rows []ports.BankedKeys) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, row := range rows {
		k := bankKey{observer: row.Observer, key: row.Key}
		if row.Count <= 0 {
			delete(r.store.bank, k)
			continue
		}
		r.store.bank[k] = row.Count
	}
	return nil
}

type DeliveryRepo struct {
	store *Store
}

func NewDeliveryRepo(store *Store) DeliveryRepo {
	return DeliveryRepo{store: store}
}

func (r DeliveryRepo) ListPending(_ context.Context) ([]ports.DeliveryRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]ports.DeliveryRecord, 0, len(r.store.deliveries))
	for _, rec := range r.store.deliveries {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r DeliveryRepo) Append(_ context.Context, rec ports.DeliveryRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.deliveries[rec.ID]; exists {
		return ports.ErrConflict
	}
	r.store.deliveries[rec.ID] = rec
	return nil
}

func (r DeliveryRepo) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.deliveries[id]; !ok {
		return ports.ErrNotFound
	}
	delete(r.store.deliveries, id)
	return nil
}
