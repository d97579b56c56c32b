package visibility

import (
	"errors"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/world"
)

var ErrInvalidTracker = errors.New("invalid tracker")

// BatchFunc receives a non-empty batch of observers.
type BatchFunc func(observers []world.ObserverID)

// Tracker decides every tick which observers currently perceive one object.
// It is owned by the tick goroutine and is not safe for concurrent use.
type Tracker struct {
	id        string
	transform world.Position
	radius    float64

	viewers   []world.ObserverID
	blacklist map[world.ObserverID]struct{}
	shown     map[world.ObserverID]struct{}
	order     []world.ObserverID

	dir    ports.ObserverDirectory
	policy world.PerceptionPolicy
	show   BatchFunc
	hide   BatchFunc

	onEmpty  func(*Tracker)
	onUpdate func(*Tracker)
}

func NewTracker(id string, transform world.Position, dir ports.ObserverDirectory, policy world.PerceptionPolicy, show, hide BatchFunc) (*Tracker, error) {
	if id == "" || dir == nil || show == nil || hide == nil {
		return nil, ErrInvalidTracker
	}
	return &Tracker{
		id:        id,
		transform: transform,
		blacklist: map[world.ObserverID]struct{}{},
		shown:     map[world.ObserverID]struct{}{},
		dir:       dir,
		policy:    policy,
		show:      show,
		hide:      hide,
	}, nil
}

func (t *Tracker) ID() string                { return t.id }
func (t *Tracker) Transform() world.Position { return t.transform }

func (t *Tracker) SetTransform(p world.Position) { t.transform = p }

// SetViewers replaces the explicit viewer list. Everyone currently shown is
// hidden and the next tick recomputes from scratch.
func (t *Tracker) SetViewers(ids []world.ObserverID) {
	t.hideAll()
	t.viewers = dedupe(ids)
}

func (t *Tracker) AddViewer(id world.ObserverID) {
	for _, v := range t.viewers {
		if v == id {
			return
		}
	}
	t.viewers = append(t.viewers, id)
}

func (t *Tracker) RemoveViewer(id world.ObserverID) {
	out := t.viewers[:0]
	for _, v := range t.viewers {
		if v != id {
			out = append(out, v)
		}
	}
	t.viewers = out
}

func (t *Tracker) Viewers() []world.ObserverID {
	return append([]world.ObserverID(nil), t.viewers...)
}

func (t *Tracker) SetBlacklist(ids []world.ObserverID) {
	t.blacklist = make(map[world.ObserverID]struct{}, len(ids))
	for _, id := range ids {
		t.blacklist[id] = struct{}{}
	}
}

func (t *Tracker) AddBlacklist(id world.ObserverID)    { t.blacklist[id] = struct{}{} }
func (t *Tracker) RemoveBlacklist(id world.ObserverID) { delete(t.blacklist, id) }

// SetPerceptionRadius overrides the policy radius; r <= 0 restores it.
func (t *Tracker) SetPerceptionRadius(r float64) { t.radius = r }

// RemoveShownViewer forgets a disconnecting observer without notifying it.
func (t *Tracker) RemoveShownViewer(id world.ObserverID) {
	if _, ok := t.shown[id]; !ok {
		return
	}
	delete(t.shown, id)
	t.order = removeID(t.order, id)
}

func (t *Tracker) OnEmpty(fn func(*Tracker))  { t.onEmpty = fn }
func (t *Tracker) OnUpdate(fn func(*Tracker)) { t.onUpdate = fn }

func (t *Tracker) IsShown(id world.ObserverID) bool {
	_, ok := t.shown[id]
	return ok
}

// Shown lists the observers the object is currently shown to, in the order
// they were shown.
func (t *Tracker) Shown() []world.ObserverID {
	return append([]world.ObserverID(nil), t.order...)
}

// Tick reconciles the shown set with the current observer population.
func (t *Tracker) Tick() {
	if t.onUpdate != nil {
		t.onUpdate(t)
	}

	explicit := len(t.viewers) > 0
	var allowed map[world.ObserverID]struct{}
	if explicit {
		allowed = make(map[world.ObserverID]struct{}, len(t.viewers))
		for _, v := range t.viewers {
			allowed[v] = struct{}{}
		}
	}

	var hideBatch []world.ObserverID
	kept := make([]world.ObserverID, 0, len(t.order))
	for _, id := range t.order {
		pos, online := t.dir.Position(id)
		if !online {
			delete(t.shown, id)
			continue
		}
		_, blocked := t.blacklist[id]
		_, listed := allowed[id]
		if blocked || (explicit && !listed) || !t.policy.Perceivable(t.transform, pos, t.radius) {
			delete(t.shown, id)
			hideBatch = append(hideBatch, id)
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
	if len(hideBatch) > 0 {
		t.hide(hideBatch)
	}

	var candidates []ports.ObserverPresence
	if explicit {
		for _, id := range t.viewers {
			pos, online := t.dir.Position(id)
			if !online {
				continue
			}
			if _, ok := t.shown[id]; ok {
				continue
			}
			candidates = append(candidates, ports.ObserverPresence{ID: id, Position: pos})
		}
		if !t.anyViewerOnline() {
			if t.onEmpty != nil {
				t.onEmpty(t)
			}
			return
		}
	} else {
		for _, p := range t.dir.Connected() {
			if _, ok := t.shown[p.ID]; ok {
				continue
			}
			candidates = append(candidates, p)
		}
	}

	var showBatch []world.ObserverID
	for _, c := range candidates {
		if _, blocked := t.blacklist[c.ID]; blocked {
			continue
		}
		if !t.policy.Perceivable(t.transform, c.Position, t.radius) {
			continue
		}
		t.shown[c.ID] = struct{}{}
		t.order = append(t.order, c.ID)
		showBatch = append(showBatch, c.ID)
	}
	if len(showBatch) > 0 {
		t.show(showBatch)
	}
}

// Stop hides the object from everyone and clears the shown set.
func (t *Tracker) Stop() {
	t.hideAll()
}

func (t *Tracker) hideAll() {
	var batch []world.ObserverID
	for _, id := range t.order {
		if _, online := t.dir.Position(id); online {
			batch = append(batch, id)
		}
	}
	t.shown = map[world.ObserverID]struct{}{}
	t.order = nil
	if len(batch) > 0 {
		t.hide(batch)
	}
}

func (t *Tracker) anyViewerOnline() bool {
	for _, id := range t.viewers {
		if _, online := t.dir.Position(id); online {
			return true
		}
	}
	return false
}

func dedupe(ids []world.ObserverID) []world.ObserverID {
	seen := make(map[world.ObserverID]struct{}, len(ids))
	out := make([]world.ObserverID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func removeID(ids []world.ObserverID, id world.ObserverID) []world.ObserverID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
