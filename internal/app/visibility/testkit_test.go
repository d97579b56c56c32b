package visibility

import (
	"sort"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

type fakeDirectory struct {
	online map[world.ObserverID]world.Position
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{online: map[world.ObserverID]world.Position{}}
}

func (d *fakeDirectory) put(id world.ObserverID, p world.Position) { d.online[id] = p }
func (d *fakeDirectory) drop(id world.ObserverID)                  { delete(d.online, id) }

func (d *fakeDirectory) Position(id world.ObserverID) (world.Position, bool) {
	p, ok := d.online[id]
	return p, ok
}

func (d *fakeDirectory) Connected() []ports.ObserverPresence {
	out := make([]ports.ObserverPresence, 0, len(d.online))
	for id, p := range d.online {
		out = append(out, ports.ObserverPresence{ID: id, Position: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type batchLog struct {
	shows [][]world.ObserverID
	hides [][]world.ObserverID
}

func (b *batchLog) show(ids []world.ObserverID) { b.shows = append(b.shows, ids) }
func (b *batchLog) hide(ids []world.ObserverID) { b.hides = append(b.hides, ids) }
func (b *batchLog) reset()                      { b.shows, b.hides = nil, nil }

type recordingDispatch struct {
	shows     int
	hides     int
	poses     []crate.Pose
	equipment []*crate.Item
	lastShow  ports.PartState
}

func (r *recordingDispatch) Show(_ string, _ []world.ObserverID, state ports.PartState) {
	r.shows++
	r.lastShow = state
}

func (r *recordingDispatch) Hide(_ string, _ []world.ObserverID) { r.hides++ }

func (r *recordingDispatch) UpdatePose(_ string, _ []world.ObserverID, pose crate.Pose) {
	r.poses = append(r.poses, pose)
}

func (r *recordingDispatch) UpdateEquipment(_ string, _ []world.ObserverID, _ crate.EquipmentSlot, item *crate.Item) {
	r.equipment = append(r.equipment, item)
}

var origin = world.Position{World: "w"}

func near(dx float64) world.Position { return origin.Offset(dx, 0, 0) }
