package attrs

import (
	"errors"
	"sort"
	"sync"
)

var ErrInvalidExpiry = errors.New("invalid expiry")

// Timer is a cancellable one-shot expiry.
type Timer interface {
	Cancel() bool
}

// Scheduler registers one-shot work delay ticks from now.
type Scheduler interface {
	After(delay int, fn func()) (Timer, error)
}

type entry struct {
	value any
	timer Timer
	gen   uint64
}

// Store is a concurrent key/value map whose entries may expire after a
// number of ticks. Writing or removing a key cancels its pending expiry.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	gen     uint64
	sched   Scheduler
}

func New(sched Scheduler) *Store {
	return &Store{entries: map[string]entry{}, sched: sched}
}

func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key]
	return ok
}

func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

func (s *Store) GetOr(key string, fallback any) any {
	if v, ok := s.Get(key); ok {
		return v
	}
	return fallback
}

// Value returns the entry at key when it holds a T.
func Value[T any](s *Store, key string) (T, bool) {
	var zero T
	v, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.replaceLocked(key, entry{value: value, gen: s.gen})
}

// SetWithExpiry stores value and removes it ticks later unless the key is
// written again first. onExpire, when set, runs after the removal.
func (s *Store) SetWithExpiry(key string, value any, ticks int, onExpire func(key string, value any)) error {
	if ticks <= 0 || s.sched == nil {
		return ErrInvalidExpiry
	}
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	timer, err := s.sched.After(ticks, func() {
		s.mu.Lock()
		cur, ok := s.entries[key]
		if !ok || cur.gen != gen {
			s.mu.Unlock()
			return
		}
		delete(s.entries, key)
		s.mu.Unlock()
		if onExpire != nil {
			onExpire(key, cur.value)
		}
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[key]; ok && cur.gen > gen {
		// A newer write landed while the timer was being registered.
		timer.Cancel()
		return nil
	}
	s.replaceLocked(key, entry{value: value, timer: timer, gen: gen})
	return nil
}

func (s *Store) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	if e.timer != nil {
		e.timer.Cancel()
	}
	delete(s.entries, key)
	return true
}

// Reset cancels every pending expiry and clears the store.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.timer != nil {
			e.timer.Cancel()
		}
	}
	s.entries = map[string]entry{}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot copies the current key/value pairs. Values are copied shallowly.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.entries))
	for k, e := range s.entries {
		out[k] = e.value
	}
	return out
}

func (s *Store) replaceLocked(key string, e entry) {
	if old, ok := s.entries[key]; ok && old.timer != nil {
		old.timer.Cancel()
	}
	s.entries[key] = e
}
