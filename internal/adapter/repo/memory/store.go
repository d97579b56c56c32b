package memory

import (
	"sync"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

type bankKey struct {
	observer world.ObserverID
	key      string
}

type Store struct {
	txMu sync.Mutex

	mu         sync.RWMutex
	crates     map[string]crate.Definition
	keys       map[string]crate.Key
	tags       map[string]crate.Tag
	bank       map[bankKey]int
	deliveries map[string]ports.DeliveryRecord
}

func NewStore() *Store {
	return &Store{
		crates:     make(map[string]crate.Definition),
		keys:       make(map[string]crate.Key),
		tags:       make(map[string]crate.Tag),
		bank:       make(map[bankKey]int),
		deliveries: make(map[string]ports.DeliveryRecord),
	}
}

type snapshot struct {
	crates     map[string]crate.Definition
	keys       map[string]crate.Key
	tags       map[string]crate.Tag
	bank       map[bankKey]int
	deliveries map[string]ports.DeliveryRecord
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := snapshot{
		crates:     make(map[string]crate.Definition, len(s.crates)),
		keys:       make(map[string]crate.Key, len(s.keys)),
		tags:       make(map[string]crate.Tag, len(s.tags)),
		bank:       make(map[bankKey]int, len(s.bank)),
		deliveries: make(map[string]ports.DeliveryRecord, len(s.deliveries)),
	}
	for k, v := range s.crates {
		out.crates[k] = v.Clone()
	}
	for k, v := range s.keys {
		out.keys[k] = v
	}
	for k, v := range s.tags {
		out.tags[k] = v
	}
	for k, v := range s.bank {
		out.bank[k] = v
	}
	for k, v := range s.deliveries {
		out.deliveries[k] = v
	}
	return out
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crates = snap.crates
	s.keys = snap.keys
	s.tags = snap.tags
	s.bank = snap.bank
	s.deliveries = snap.deliveries
}
