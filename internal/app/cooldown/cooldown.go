package cooldown

import (
	"errors"

	"crateworks/internal/app/attrs"
	"crateworks/internal/domain/world"
)

var ErrInvalidDuration = errors.New("invalid cooldown duration")

// Tracker remembers, per actor, the tick until which a new trigger is
// refused. Entries expire on their own through the attribute store.
type Tracker struct {
	store *attrs.Store
	ticks int
	clock func() uint64
}

// New returns a tracker holding entries for ticks. ticks == 0 disables it.
func New(store *attrs.Store, ticks int, clock func() uint64) (*Tracker, error) {
	if ticks < 0 || store == nil || clock == nil {
		return nil, ErrInvalidDuration
	}
	return &Tracker{store: store, ticks: ticks, clock: clock}, nil
}

func (t *Tracker) Enabled() bool { return t.ticks > 0 }

func (t *Tracker) Start(actor world.ObserverID) error {
	if !t.Enabled() {
		return nil
	}
	return t.store.SetWithExpiry(key(actor), t.clock()+uint64(t.ticks), t.ticks, nil)
}

// Remaining reports how many ticks are left for actor.
func (t *Tracker) Remaining(actor world.ObserverID) (int, bool) {
	until, ok := attrs.Value[uint64](t.store, key(actor))
	if !ok {
		return 0, false
	}
	now := t.clock()
	if until <= now {
		return 0, false
	}
	return int(until - now), true
}

func (t *Tracker) Clear(actor world.ObserverID) { t.store.Remove(key(actor)) }

func key(actor world.ObserverID) string { return "cooldown:" + string(actor) }
