package keys

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/world"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInsufficientKeys = errors.New("not enough keys")
)

type bankKey struct {
	observer world.ObserverID
	key      string
}

// Bank keeps virtual key counters per observer. Changes are tracked as
// dirty rows until Flush writes them out.
type Bank struct {
	mu     sync.Mutex
	counts map[bankKey]int
	dirty  map[bankKey]struct{}
}

func NewBank() *Bank {
	return &Bank{counts: map[bankKey]int{}, dirty: map[bankKey]struct{}{}}
}

func (b *Bank) Load(ctx context.Context, repo ports.KeyBankRepository) error {
	rows, err := repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load key bank: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range rows {
		if r.Count > 0 {
			b.counts[bankKey{r.Observer, r.Key}] = r.Count
		}
	}
	return nil
}

func (b *Bank) Balance(observer world.ObserverID, key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[bankKey{observer, key}]
}

// Balances lists the non-zero counters of one observer by key name.
func (b *Bank) Balances(observer world.ObserverID) []ports.BankedKeys {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []ports.BankedKeys
	for k, n := range b.counts {
		if k.observer == observer && n > 0 {
			out = append(out, ports.BankedKeys{Observer: observer, Key: k.key, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (b *Bank) Add(observer world.ObserverID, key string, n int) error {
	if n <= 0 {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := bankKey{observer, key}
	b.counts[k] += n
	b.dirty[k] = struct{}{}
	return nil
}

func (b *Bank) Take(observer world.ObserverID, key string, n int) error {
	if n <= 0 {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := bankKey{observer, key}
	if b.counts[k] < n {
		return fmt.Errorf("%w: have %d need %d", ErrInsufficientKeys, b.counts[k], n)
	}
	b.counts[k] -= n
	if b.counts[k] == 0 {
		delete(b.counts, k)
	}
	b.dirty[k] = struct{}{}
	return nil
}

// Forget drops every counter of a key template.
func (b *Bank) Forget(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k := range b.counts {
		if k.key == key {
			delete(b.counts, k)
			b.dirty[k] = struct{}{}
		}
	}
}

// Flush writes the dirty counters. Rows that fail to write stay dirty.
func (b *Bank) Flush(ctx context.Context, repo ports.KeyBankRepository) (int, error) {
	b.mu.Lock()
	rows := make([]ports.BankedKeys, 0, len(b.dirty))
	for k := range b.dirty {
		rows = append(rows, ports.BankedKeys{Observer: k.observer, Key: k.key, Count: b.counts[k]})
	}
	b.dirty = map[bankKey]struct{}{}
	b.mu.Unlock()
	if len(rows) == 0 {
		return 0, nil
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Observer != rows[j].Observer {
			return rows[i].Observer < rows[j].Observer
		}
		return rows[i].Key < rows[j].Key
	})
	if err := repo.Upsert(ctx, rows); err != nil {
		b.mu.Lock()
		for _, r := range rows {
			b.dirty[bankKey{r.Observer, r.Key}] = struct{}{}
		}
		b.mu.Unlock()
		return 0, fmt.Errorf("flush key bank: %w", err)
	}
	return len(rows), nil
}
