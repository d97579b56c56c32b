package session

import (
	"io"
	"log"
	"testing"
	"time"

	"crateworks/internal/app/delivery"
	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

type fakePresence struct {
	at map[world.ObserverID]world.Position
}

func newFakePresence() *fakePresence { return &fakePresence{at: map[world.ObserverID]world.Position{}} }

func (p *fakePresence) Position(id world.ObserverID) (world.Position, bool) {
	pos, ok := p.at[id]
	return pos, ok
}

func (p *fakePresence) Connected() []ports.ObserverPresence {
	out := make([]ports.ObserverPresence, 0, len(p.at))
	for id, pos := range p.at {
		out = append(out, ports.ObserverPresence{ID: id, Position: pos})
	}
	return out
}

func (p *fakePresence) Connect(id world.ObserverID, pos world.Position) error {
	p.at[id] = pos
	return nil
}

func (p *fakePresence) Move(id world.ObserverID, pos world.Position) error {
	if _, ok := p.at[id]; !ok {
		return ports.ErrOffline
	}
	p.at[id] = pos
	return nil
}

func (p *fakePresence) Disconnect(id world.ObserverID) bool {
	_, ok := p.at[id]
	delete(p.at, id)
	return ok
}

type slotInventory struct {
	free int
	got  []crate.Item
}

func (s *slotInventory) CanFit(_ world.ObserverID, items []crate.Item) bool {
	return len(items) <= s.free
}

func (s *slotInventory) Add(_ world.ObserverID, items []crate.Item) error {
	s.free -= len(items)
	s.got = append(s.got, items...)
	return nil
}

func (s *slotInventory) Count(world.ObserverID, crate.Item) int      { return 0 }
func (s *slotInventory) RemoveOne(world.ObserverID, crate.Item) bool { return false }

type recordingAnnouncer struct {
	notes      map[world.ObserverID][]string
	broadcasts []string
}

func newAnnouncer() *recordingAnnouncer {
	return &recordingAnnouncer{notes: map[world.ObserverID][]string{}}
}

func (r *recordingAnnouncer) Notify(id world.ObserverID, msg string) {
	r.notes[id] = append(r.notes[id], msg)
}

func (r *recordingAnnouncer) Broadcast(msg string) { r.broadcasts = append(r.broadcasts, msg) }

type forgetter struct{ forgot []world.ObserverID }

func (f *forgetter) ForgetObserver(id world.ObserverID) { f.forgot = append(f.forgot, id) }

type redeemCounter struct{ redeemed int }

func (c *redeemCounter) RecordTrigger(string)   {}
func (c *redeemCounter) RecordGrant(bool, bool) {}
func (c *redeemCounter) RecordRedeemed(n int)   { c.redeemed += n }
func (c *redeemCounter) RecordFault()           {}

var spawn = world.Position{World: "world", X: 10, Y: 64, Z: 10}

func newQueue(t *testing.T) *delivery.Queue {
	t.Helper()
	q := delivery.NewQueue(nil, log.New(io.Discard, "", 0), func() time.Time { return time.Unix(1700000000, 0) })
	t.Cleanup(q.Close)
	return q
}
