package phase

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"

	"crateworks/internal/app/attrs"
	"crateworks/internal/app/ports"
	"crateworks/internal/app/schedule"
	"crateworks/internal/app/visibility"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

const (
	DefaultPhaseEvery = 2

	keyPhase = "phase"
	keyActor = "actor"
	keyBatch = "batch"

	SoundLaunch = "entity.firework_rocket.shoot"
	SoundCast   = "entity.evoker.cast_spell"
	SoundReveal = "block.note_block.chime"
)

var (
	ErrBusy         = errors.New("construct is busy")
	ErrInvalidSetup = errors.New("invalid controller setup")
	ErrEmptyBatch   = errors.New("empty reward batch")
)

type Deps struct {
	Scheduler  *schedule.Scheduler
	Directory  ports.ObserverDirectory
	Dispatch   ports.VisualDispatch
	Effects    ports.Effects
	Announcer  ports.Announcer
	Inventory  ports.Inventory
	Policy     world.PerceptionPolicy
	Messages   Messages
	PhaseEvery int
	Logger     *log.Logger
	Rand       *rand.Rand
}

// Outcome reports how a drawn batch left the controller.
type Outcome struct {
	Crate  string
	Actor  world.ObserverID
	Batch  []crate.Prize
	Tick   uint64
	Queued bool
	Err    error
}

// Settler receives every outcome exactly once. Queued outcomes still need
// to reach the actor.
type Settler interface {
	Settle(out Outcome)
}

type SettlerFunc func(Outcome)

func (f SettlerFunc) Settle(out Outcome) { f(out) }

// Controller animates one construct through its phases on the tick
// goroutine and pays out the drawn batch once per cycle.
type Controller struct {
	name        string
	origin      world.Position
	orientation crate.Orientation
	skin        [crate.SkinParts]crate.Item

	parts [crate.StructureParts]*visibility.Part
	store *attrs.Store
	deps  Deps

	settler   Settler
	phaseTask *schedule.Task
	viewTask  *schedule.Task
	stopped   bool
}

func New(def crate.Definition, deps Deps, settler Settler) (*Controller, error) {
	if deps.Scheduler == nil || deps.Directory == nil || deps.Dispatch == nil || deps.Inventory == nil {
		return nil, ErrInvalidSetup
	}
	if !def.Orientation.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetup, crate.ErrInvalidOrientation)
	}
	if deps.PhaseEvery <= 0 {
		deps.PhaseEvery = DefaultPhaseEvery
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	deps.Messages = deps.Messages.WithDefaults()
	if settler == nil {
		settler = SettlerFunc(func(Outcome) {})
	}

	c := &Controller{
		name:        def.Name,
		origin:      def.Location,
		orientation: def.Orientation,
		skin:        def.Skin,
		store:       attrs.New(attrs.OnScheduler(deps.Scheduler)),
		deps:        deps,
		settler:     settler,
	}

	layout := crate.Layout(def.Location, def.Orientation)
	for i := range layout {
		part, err := visibility.NewPart(fmt.Sprintf("%s:%d", def.Name, i), layout[i], deps.Directory, deps.Policy, deps.Dispatch)
		if err != nil {
			return nil, err
		}
		c.parts[i] = part
	}
	c.parts[crate.PartSpine].Equip(crate.SlotHelmet, c.skin[crate.SkinSpine])
	c.store.Set(keyPhase, crate.Idle(0))

	phaseTask, err := deps.Scheduler.Every(deps.PhaseEvery, c.Step)
	if err != nil {
		return nil, fmt.Errorf("register phase task: %w", err)
	}
	viewTask, err := deps.Scheduler.Every(1, c.tickVisibility)
	if err != nil {
		phaseTask.Cancel()
		return nil, fmt.Errorf("register visibility task: %w", err)
	}
	c.phaseTask = phaseTask
	c.viewTask = viewTask
	return c, nil
}

func (c *Controller) Name() string { return c.name }

func (c *Controller) Phase() crate.Phase {
	p, _ := attrs.Value[crate.Phase](c.store, keyPhase)
	return p
}

// CanTrigger reports whether a new cycle may start.
func (c *Controller) CanTrigger() bool {
	return !c.stopped && c.Phase().IsIdle()
}

func (c *Controller) Actor() (world.ObserverID, bool) {
	return attrs.Value[world.ObserverID](c.store, keyActor)
}

func (c *Controller) Batch() []crate.Prize {
	b, _ := attrs.Value[[]crate.Prize](c.store, keyBatch)
	return crate.ClonePrizes(b)
}

func (c *Controller) Store() *attrs.Store { return c.store }

func (c *Controller) Parts() []*visibility.Part {
	return append([]*visibility.Part(nil), c.parts[:]...)
}

func (c *Controller) Part(i int) *visibility.Part { return c.parts[i] }

// Begin starts a cycle for actor. consume spends the key and runs only once
// the construct is known to be idle; its failure leaves the construct idle.
func (c *Controller) Begin(actor world.ObserverID, batch []crate.Prize, consume func() error) error {
	if !c.CanTrigger() {
		return ErrBusy
	}
	if len(batch) == 0 {
		return ErrEmptyBatch
	}
	if consume != nil {
		if err := consume(); err != nil {
			return err
		}
	}
	c.store.Set(keyActor, actor)
	c.store.Set(keyBatch, crate.ClonePrizes(batch))
	c.setPhase(crate.WaitingForActor(c.Phase().Degree))
	return nil
}

// Step advances the animation by one phase tick.
func (c *Controller) Step() {
	if c.stopped {
		return
	}
	ph := c.Phase()
	switch ph.Kind {
	case crate.PhaseIdle, crate.PhaseWaitingForActor:
		c.stepSpin(ph)
	case crate.PhaseOpening:
		c.stepOpening(ph)
	case crate.PhaseRestarting:
		c.stepReveal(ph)
	case crate.PhaseClosing:
		c.stepClosing(ph)
	}
}

func (c *Controller) stepSpin(ph crate.Phase) {
	if ph.Kind == crate.PhaseWaitingForActor && ph.Degree == crate.OpenTriggerDegree {
		c.open()
		return
	}
	c.parts[crate.PartSpine].Teleport(crate.SpinePosition(c.origin, float64(ph.Degree)))
	c.setPhase(crate.Phase{Kind: ph.Kind, Degree: (ph.Degree + 10) % 360})
}

func (c *Controller) open() {
	c.parts[crate.PartSpine].Unequip(crate.SlotHelmet)
	c.parts[crate.PartTop].Equip(crate.SlotHelmet, c.skin[crate.SkinTop])
	c.setPhase(crate.Opening(0))
	c.sound(SoundLaunch)
}

func (c *Controller) stepOpening(ph crate.Phase) {
	if ph.Degree > crate.OpenDegreeMax {
		c.beginReveal()
		return
	}
	for i := 0; i < 8; i++ {
		c.particles(c.origin.Offset(0, 2.3, 0), 1, ports.Color{
			R: uint8(c.deps.Rand.IntN(256)),
			G: uint8(c.deps.Rand.IntN(256)),
			B: uint8(c.deps.Rand.IntN(256)),
		})
	}
	c.applyArmStep(crate.OpeningStep(ph.Degree))
	c.setPhase(crate.Opening(ph.Degree + 10))
}

func (c *Controller) beginReveal() {
	c.setPhase(crate.Restarting(0))
	batch := c.Batch()
	for i, idx := range []int{crate.PartLeftDisplay, crate.PartRightDisplay} {
		part := c.parts[idx]
		pose := part.Pose()
		pose.Position = crate.DisplayRestPosition(c.origin, c.orientation)
		pose.LeftArm = crate.Rotation{X: -90}
		pose.RightArm = crate.Rotation{X: -90}
		part.SetPose(pose)
		if i < len(batch) {
			part.Equip(crate.SlotHelmet, batch[i].Item)
		}
	}
	c.sound(SoundCast)
}

func (c *Controller) stepReveal(ph crate.Phase) {
	p := ph.Progress
	switch {
	case p <= crate.ArcProgressMax:
		for _, idx := range []int{crate.PartLeftDisplay, crate.PartRightDisplay} {
			c.parts[idx].Teleport(crate.DisplayArcPosition(c.origin, c.orientation, idx, p))
		}
		c.setPhase(crate.Restarting(p + 0.05))
	case p > crate.RevealProgressMax:
		c.finishReveal()
	default:
		for _, idx := range []int{crate.PartLeftDisplay, crate.PartRightDisplay} {
			c.parts[idx].Teleport(crate.DisplayHoldPosition(c.origin, c.orientation, idx, p))
		}
		c.setPhase(crate.Restarting(p + 10))
	}
}

func (c *Controller) finishReveal() {
	out := c.payout()
	c.resetDisplays()
	for _, idx := range []int{crate.PartLeftDisplay, crate.PartRightDisplay} {
		c.particles(crate.BurstPosition(c.origin, c.orientation, idx), 10, ports.White)
		c.sound(SoundReveal)
	}
	if out.Err != nil {
		c.deps.Logger.Printf("crate %s: grant to %s failed, batch queued: %v", c.name, out.Actor, out.Err)
		c.resetToIdle()
	} else {
		c.setPhase(crate.Closing(crate.OpenDegreeMax))
	}
	c.settler.Settle(out)
}

// payout takes the batch out of the store and hands it to the actor. The
// batch can be taken only once per cycle.
func (c *Controller) payout() Outcome {
	actor, _ := c.Actor()
	batch, _ := attrs.Value[[]crate.Prize](c.store, keyBatch)
	c.store.Remove(keyBatch)
	out := Outcome{Crate: c.name, Actor: actor, Batch: batch, Tick: c.deps.Scheduler.Tick()}
	if len(batch) == 0 {
		out.Err = ErrEmptyBatch
		return out
	}

	items := crate.BatchItems(batch)
	if _, online := c.deps.Directory.Position(actor); !online {
		out.Queued = true
	} else if err := c.deps.Inventory.Add(actor, items); err != nil {
		out.Queued = true
		out.Err = err
		return out
	}

	if !out.Queued {
		c.notify(actor, c.deps.Messages.Won)
		for _, it := range items {
			c.notify(actor, c.deps.Messages.PrizeLine(it))
		}
	}
	for _, p := range batch {
		if p.Rare {
			c.broadcast(c.deps.Messages.RareLine(actor, p.Item))
		}
	}
	return out
}

func (c *Controller) stepClosing(ph crate.Phase) {
	if ph.Degree < 0 {
		c.store.Remove(keyActor)
		c.store.Remove(keyBatch)
		c.parts[crate.PartSpine].Equip(crate.SlotHelmet, c.skin[crate.SkinSpine])
		for _, idx := range []int{crate.PartTop, crate.LeftArmFirst, crate.RightArmFirst} {
			c.parts[idx].ClearEquipment()
		}
		c.setPhase(crate.Idle(crate.OpenTriggerDegree))
		return
	}
	c.applyArmStep(crate.ClosingStep(ph.Degree))
	c.setPhase(crate.Closing(ph.Degree - 10))
}

func (c *Controller) applyArmStep(step crate.ArmStep) {
	c.parts[step.ClearLeft].ClearEquipment()
	c.parts[step.ClearRight].ClearEquipment()
	c.parts[step.EquipLeft].Equip(crate.SlotHelmet, c.skin[crate.SkinLeftArm])
	c.parts[step.EquipRight].Equip(crate.SlotHelmet, c.skin[crate.SkinRightArm])
}

func (c *Controller) resetDisplays() {
	for _, idx := range []int{crate.PartLeftDisplay, crate.PartRightDisplay} {
		c.parts[idx].Teleport(crate.DisplayRestPosition(c.origin, c.orientation))
		c.parts[idx].ClearEquipment()
	}
}

// resetToIdle restores the resting look and drops the cycle.
func (c *Controller) resetToIdle() {
	c.store.Remove(keyActor)
	c.store.Remove(keyBatch)
	c.resetDisplays()
	for i := crate.PartTop; i < crate.StructureParts; i++ {
		if i == crate.PartLeftDisplay || i == crate.PartRightDisplay {
			continue
		}
		c.parts[i].ClearEquipment()
	}
	c.parts[crate.PartSpine].Equip(crate.SlotHelmet, c.skin[crate.SkinSpine])
	c.setPhase(crate.Idle(crate.OpenTriggerDegree))
}

// Abort ends the current cycle without paying out and returns the batch
// that was still owed, if any.
func (c *Controller) Abort() (world.ObserverID, []crate.Prize, bool) {
	if c.Phase().IsIdle() {
		return "", nil, false
	}
	actor, _ := c.Actor()
	batch, ok := attrs.Value[[]crate.Prize](c.store, keyBatch)
	c.resetToIdle()
	if !ok || len(batch) == 0 {
		return "", nil, false
	}
	return actor, batch, true
}

// SetSkin swaps one skin item; the spine head updates immediately.
func (c *Controller) SetSkin(index int, item crate.Item) error {
	if index < 0 || index >= crate.SkinParts {
		return fmt.Errorf("%w: skin index %d", ErrInvalidSetup, index)
	}
	c.skin[index] = item
	if index == crate.SkinSpine && c.Phase().Spinning() {
		c.parts[crate.PartSpine].Equip(crate.SlotHelmet, item)
	}
	return nil
}

// RemoveShownViewer forgets a disconnecting observer on every part.
func (c *Controller) RemoveShownViewer(id world.ObserverID) {
	for _, p := range c.parts {
		p.Tracker().RemoveShownViewer(id)
	}
}

// Stop cancels the tasks, hides every part and clears the state.
func (c *Controller) Stop() {
	if c.stopped {
		return
	}
	c.stopped = true
	c.phaseTask.Cancel()
	c.viewTask.Cancel()
	for _, p := range c.parts {
		p.Stop()
	}
	c.store.Reset()
}

func (c *Controller) tickVisibility() {
	for _, p := range c.parts {
		p.Tick()
	}
}

func (c *Controller) setPhase(p crate.Phase) {
	c.store.Set(keyPhase, p)
}

func (c *Controller) particles(at world.Position, count int, color ports.Color) {
	if c.deps.Effects != nil {
		c.deps.Effects.Particles(at, count, color)
	}
}

func (c *Controller) sound(name string) {
	if c.deps.Effects != nil {
		c.deps.Effects.Sound(c.origin, name)
	}
}

func (c *Controller) notify(id world.ObserverID, msg string) {
	if c.deps.Announcer != nil && msg != "" {
		c.deps.Announcer.Notify(id, msg)
	}
}

func (c *Controller) broadcast(msg string) {
	if c.deps.Announcer != nil && msg != "" {
		c.deps.Announcer.Broadcast(msg)
	}
}
