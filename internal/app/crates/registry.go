package crates

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"crateworks/internal/app/attrs"
	"crateworks/internal/app/cooldown"
	"crateworks/internal/app/delivery"
	"crateworks/internal/app/keys"
	"crateworks/internal/app/phase"
	"crateworks/internal/app/ports"
	"crateworks/internal/app/schedule"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/reward"
	"crateworks/internal/domain/world"
)

var (
	ErrUnknownCrate = fmt.Errorf("unknown crate: %w", ports.ErrNotFound)
	ErrNoKey        = errors.New("actor holds no key")
	ErrEmptyPool    = errors.New("crate has no rewards")
	ErrCrateBusy    = errors.New("crate is busy")
	ErrCooldown     = errors.New("actor is on cooldown")
	ErrClosed       = errors.New("registry closed")
	ErrInvalidSetup = errors.New("invalid registry setup")
)

// Trigger outcomes reported to metrics.
const (
	OutcomeStarted       = "started"
	OutcomeUnknownCrate  = "unknown_crate"
	OutcomeUnknownKey    = "unknown_key"
	OutcomeOffline       = "offline"
	OutcomeCooldown      = "cooldown"
	OutcomeNoKey         = "no_key"
	OutcomeEmpty         = "empty"
	OutcomeBusy          = "busy"
	OutcomeInventoryFull = "inventory_full"
	OutcomeError         = "error"
)

type Deps struct {
	Scheduler  *schedule.Scheduler
	Directory  ports.ObserverDirectory
	Dispatch   ports.VisualDispatch
	Effects    ports.Effects
	Announcer  ports.Announcer
	Inventory  ports.Inventory
	Catalog    *keys.Catalog
	Bank       *keys.Bank
	Deliveries *delivery.Queue
	Ledger     ports.GrantLedger
	Metrics    ports.TriggerMetrics
	Selector   reward.Selector
	Policy     world.PerceptionPolicy
	Messages   phase.Messages
	PhaseEvery int
	Cooldown   int
	Logger     *log.Logger
	Now        func() time.Time
}

type entry struct {
	def  crate.Definition
	pool *crate.Pool
	ctl  *phase.Controller
}

// Registry owns every live construct. All methods must run on the tick
// goroutine; use UseCase from anywhere else.
type Registry struct {
	deps     Deps
	entries  map[string]*entry
	cooldown *cooldown.Tracker
	closed   bool
}

func NewRegistry(deps Deps) (*Registry, error) {
	if deps.Scheduler == nil || deps.Directory == nil || deps.Dispatch == nil ||
		deps.Inventory == nil || deps.Catalog == nil || deps.Bank == nil {
		return nil, ErrInvalidSetup
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Selector.Rand == nil {
		deps.Selector = reward.NewSelector(uint64(deps.Now().UnixNano()), 0x9e3779b97f4a7c15)
	}
	deps.Messages = deps.Messages.WithDefaults()
	cd, err := cooldown.New(attrs.New(attrs.OnScheduler(deps.Scheduler)), deps.Cooldown, deps.Scheduler.Tick)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetup, err)
	}
	return &Registry{deps: deps, entries: map[string]*entry{}, cooldown: cd}, nil
}

// Create validates def and brings the construct to life.
func (r *Registry) Create(def crate.Definition) (Status, error) {
	if r.closed {
		return Status{}, ErrClosed
	}
	if err := def.Validate(); err != nil {
		return Status{}, err
	}
	if _, ok := r.entries[def.Name]; ok {
		return Status{}, fmt.Errorf("%w: crate %q exists", ports.ErrConflict, def.Name)
	}
	if _, ok := r.deps.Catalog.Key(def.KeyName); !ok {
		return Status{}, fmt.Errorf("%w: %q", keys.ErrUnknownKey, def.KeyName)
	}
	for _, p := range def.Prizes {
		if err := r.deps.Catalog.CheckTags(p.Tags); err != nil {
			return Status{}, err
		}
	}
	pool, err := def.BuildPool()
	if err != nil {
		return Status{}, err
	}
	ctl, err := phase.New(def, r.phaseDeps(), phase.SettlerFunc(r.settle))
	if err != nil {
		return Status{}, err
	}
	e := &entry{def: def.Clone(), pool: pool, ctl: ctl}
	r.entries[def.Name] = e
	return e.status(), nil
}

// Delete tears the construct down. A batch still owed is queued for its
// actor.
func (r *Registry) Delete(name string) error {
	e, err := r.get(name)
	if err != nil {
		return err
	}
	r.retire(e)
	delete(r.entries, name)
	return nil
}

// Shutdown retires every construct and refuses further work.
func (r *Registry) Shutdown() int {
	queued := 0
	for _, name := range r.Names() {
		if r.retire(r.entries[name]) {
			queued++
		}
		delete(r.entries, name)
	}
	r.closed = true
	return queued
}

func (r *Registry) retire(e *entry) bool {
	actor, batch, owed := e.ctl.Abort()
	e.ctl.Stop()
	if owed {
		r.settle(phase.Outcome{
			Crate:  e.def.Name,
			Actor:  actor,
			Batch:  batch,
			Tick:   r.deps.Scheduler.Tick(),
			Queued: true,
		})
	}
	return owed
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Status(name string) (Status, error) {
	e, err := r.get(name)
	if err != nil {
		return Status{}, err
	}
	return e.status(), nil
}

func (r *Registry) List() []Status {
	out := make([]Status, 0, len(r.entries))
	for _, name := range r.Names() {
		out = append(out, r.entries[name].status())
	}
	return out
}

// Definition returns the construct as it would be persisted now.
func (r *Registry) Definition(name string) (crate.Definition, error) {
	e, err := r.get(name)
	if err != nil {
		return crate.Definition{}, err
	}
	return e.definition(), nil
}

// Restore puts a construct back to a previously read definition: tier,
// key, color, skin and prizes. The animation state is left alone.
func (r *Registry) Restore(def crate.Definition) error {
	e, err := r.get(def.Name)
	if err != nil {
		return err
	}
	pool, err := def.BuildPool()
	if err != nil {
		return err
	}
	for i, item := range def.Skin {
		if item == e.def.Skin[i] {
			continue
		}
		if err := e.ctl.SetSkin(i, item); err != nil {
			return err
		}
	}
	e.def = def.Clone()
	e.pool = pool
	return nil
}

// Resize changes the pool tier and returns the evicted prizes.
func (r *Registry) Resize(name string, size crate.Size) ([]crate.Prize, error) {
	e, err := r.get(name)
	if err != nil {
		return nil, err
	}
	if !size.Valid() {
		return nil, crate.ErrInvalidSize
	}
	evicted := e.pool.Resize(size.Capacity())
	e.def.Size = size
	return evicted, nil
}

func (r *Registry) ChangeKey(name, keyName string) error {
	e, err := r.get(name)
	if err != nil {
		return err
	}
	if _, ok := r.deps.Catalog.Key(keyName); !ok {
		return fmt.Errorf("%w: %q", keys.ErrUnknownKey, keyName)
	}
	e.def.KeyName = keyName
	return nil
}

func (r *Registry) ChangeColor(name, color string) error {
	e, err := r.get(name)
	if err != nil {
		return err
	}
	next := e.definition()
	next.Color = color
	if err := next.Validate(); err != nil {
		return err
	}
	e.def.Color = color
	return nil
}

func (r *Registry) ChangeSkin(name string, index int, item crate.Item) error {
	e, err := r.get(name)
	if err != nil {
		return err
	}
	if err := item.Validate(); err != nil {
		return err
	}
	if err := e.ctl.SetSkin(index, item); err != nil {
		return err
	}
	e.def.Skin[index] = item
	return nil
}

func (r *Registry) AddPrize(name string, p crate.Prize) error {
	e, err := r.get(name)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := r.deps.Catalog.CheckTags(p.Tags); err != nil {
		return err
	}
	return e.pool.Add(p)
}

func (r *Registry) RemovePrize(name string, slot int) (crate.Prize, error) {
	e, err := r.get(name)
	if err != nil {
		return crate.Prize{}, err
	}
	return e.pool.Remove(slot)
}

// PrizePatch changes the draw parameters of one prize.
type PrizePatch struct {
	Weight *float64  `json:"weight,omitempty"`
	Rare   *bool     `json:"rare,omitempty"`
	Tags   *[]string `json:"tags,omitempty"`
}

func (r *Registry) UpdatePrize(name string, slot int, patch PrizePatch) (crate.Prize, error) {
	e, err := r.get(name)
	if err != nil {
		return crate.Prize{}, err
	}
	p, ok := e.pool.Get(slot)
	if !ok {
		return crate.Prize{}, fmt.Errorf("%w: slot %d", crate.ErrPrizeNotFound, slot)
	}
	if patch.Weight != nil {
		p.Weight = *patch.Weight
	}
	if patch.Rare != nil {
		p.Rare = *patch.Rare
	}
	if patch.Tags != nil {
		if err := r.deps.Catalog.CheckTags(*patch.Tags); err != nil {
			return crate.Prize{}, err
		}
		p.Tags = append([]string(nil), (*patch.Tags)...)
	}
	if err := p.Validate(); err != nil {
		return crate.Prize{}, err
	}
	if err := e.pool.Put(p); err != nil {
		return crate.Prize{}, err
	}
	return p.Clone(), nil
}

// CanTrigger reports whether the construct exists, has rewards and is idle.
func (r *Registry) CanTrigger(name string) bool {
	e, ok := r.entries[name]
	return ok && !e.pool.Empty() && e.ctl.CanTrigger()
}

// Trigger runs the full precondition chain and starts a cycle. The key is
// spent exactly once, and only when the cycle starts.
func (r *Registry) Trigger(name string, actor world.ObserverID) (TriggerResult, error) {
	if r.closed {
		return TriggerResult{}, ErrClosed
	}
	e, ok := r.entries[name]
	if !ok {
		return r.reject(actor, OutcomeUnknownCrate, ErrUnknownCrate, "")
	}
	k, ok := r.deps.Catalog.Key(e.def.KeyName)
	if !ok {
		return r.reject(actor, OutcomeUnknownKey, fmt.Errorf("%w: %q", keys.ErrUnknownKey, e.def.KeyName), "")
	}
	if _, online := r.deps.Directory.Position(actor); !online {
		return r.reject(actor, OutcomeOffline, ports.ErrOffline, "")
	}
	if left, cooling := r.cooldown.Remaining(actor); cooling {
		return r.reject(actor, OutcomeCooldown, ErrCooldown, r.deps.Messages.CooldownFor(left))
	}

	unit := k.Unit()
	held := r.deps.Inventory.Count(actor, unit) > 0
	banked := r.deps.Bank.Balance(actor, k.Name) > 0
	if !held && !banked {
		return r.reject(actor, OutcomeNoKey, ErrNoKey, r.deps.Messages.NoKeyFor(k.Name))
	}
	if e.pool.Empty() {
		return r.reject(actor, OutcomeEmpty, ErrEmptyPool, r.deps.Messages.Empty)
	}
	if !e.ctl.CanTrigger() {
		return r.reject(actor, OutcomeBusy, ErrCrateBusy, r.deps.Messages.Busy)
	}

	batch, err := reward.Draw(r.deps.Selector, e.pool.Candidates())
	if err != nil {
		return r.reject(actor, OutcomeError, err, "")
	}
	if !r.deps.Inventory.CanFit(actor, crate.BatchItems(batch)) {
		return r.reject(actor, OutcomeInventoryFull, ports.ErrInventoryFull, r.deps.Messages.InventoryFull)
	}

	consume := func() error {
		if held && r.deps.Inventory.RemoveOne(actor, unit) {
			return nil
		}
		if err := r.deps.Bank.Take(actor, k.Name, 1); err != nil {
			return fmt.Errorf("%w: %w", ErrNoKey, err)
		}
		return nil
	}
	if err := e.ctl.Begin(actor, batch, consume); err != nil {
		if errors.Is(err, phase.ErrBusy) {
			return r.reject(actor, OutcomeBusy, ErrCrateBusy, r.deps.Messages.Busy)
		}
		if errors.Is(err, ErrNoKey) {
			return r.reject(actor, OutcomeNoKey, err, r.deps.Messages.NoKeyFor(k.Name))
		}
		return r.reject(actor, OutcomeError, err, "")
	}
	if err := r.cooldown.Start(actor); err != nil {
		r.deps.Logger.Printf("crate %s: cooldown for %s not started: %v", name, actor, err)
	}

	r.recordTrigger(OutcomeStarted)
	r.notify(actor, r.deps.Messages.LaunchFor(name))
	return TriggerResult{
		Crate: name,
		Actor: actor,
		Batch: crate.ClonePrizes(batch),
		Tick:  r.deps.Scheduler.Tick(),
	}, nil
}

// ForgetObserver drops a disconnecting observer from every shown set.
func (r *Registry) ForgetObserver(id world.ObserverID) {
	for _, e := range r.entries {
		e.ctl.RemoveShownViewer(id)
	}
}

func (r *Registry) CratesUsingKey(keyName string) []string {
	var out []string
	for _, name := range r.Names() {
		if r.entries[name].def.KeyName == keyName {
			out = append(out, name)
		}
	}
	return out
}

func (r *Registry) CratesUsingTag(tag string) []string {
	var out []string
	for _, name := range r.Names() {
		if r.entries[name].pool.UsesTag(tag) {
			out = append(out, name)
		}
	}
	return out
}

// Controller exposes the animation state of one construct.
func (r *Registry) Controller(name string) (*phase.Controller, bool) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.ctl, true
}

func (r *Registry) get(name string) (*entry, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCrate, name)
	}
	return e, nil
}

func (r *Registry) reject(actor world.ObserverID, outcome string, err error, msg string) (TriggerResult, error) {
	r.recordTrigger(outcome)
	r.notify(actor, msg)
	return TriggerResult{}, err
}

// settle routes a finished or aborted batch: queued batches go to the
// delivery queue, every batch lands in the ledger.
func (r *Registry) settle(out phase.Outcome) {
	items := crate.BatchItems(out.Batch)
	if out.Queued && len(items) > 0 {
		if r.deps.Deliveries == nil {
			r.deps.Logger.Printf("crate %s: no delivery queue, batch for %s dropped", out.Crate, out.Actor)
		} else if _, err := r.deps.Deliveries.Enqueue(out.Actor, out.Crate, items); err != nil {
			r.deps.Logger.Printf("crate %s: queue batch for %s: %v", out.Crate, out.Actor, err)
		}
	}
	if r.deps.Metrics != nil {
		if len(items) > 0 {
			r.deps.Metrics.RecordGrant(crate.AnyRare(out.Batch), out.Queued)
		}
		if out.Err != nil {
			r.deps.Metrics.RecordFault()
		}
	}
	if r.deps.Ledger != nil && len(items) > 0 {
		rec := ports.GrantRecord{
			Tick:   out.Tick,
			At:     r.deps.Now().UTC(),
			Crate:  out.Crate,
			Actor:  out.Actor,
			Items:  items,
			Rare:   crate.AnyRare(out.Batch),
			Queued: out.Queued,
		}
		if err := r.deps.Ledger.Record(rec); err != nil {
			r.deps.Logger.Printf("crate %s: ledger: %v", out.Crate, err)
		}
	}
}

func (r *Registry) phaseDeps() phase.Deps {
	return phase.Deps{
		Scheduler:  r.deps.Scheduler,
		Directory:  r.deps.Directory,
		Dispatch:   r.deps.Dispatch,
		Effects:    r.deps.Effects,
		Announcer:  r.deps.Announcer,
		Inventory:  r.deps.Inventory,
		Policy:     r.deps.Policy,
		Messages:   r.deps.Messages,
		PhaseEvery: r.deps.PhaseEvery,
		Logger:     r.deps.Logger,
	}
}

func (r *Registry) recordTrigger(outcome string) {
	if r.deps.Metrics != nil {
		r.deps.Metrics.RecordTrigger(outcome)
	}
}

func (r *Registry) notify(actor world.ObserverID, msg string) {
	if r.deps.Announcer != nil && msg != "" {
		r.deps.Announcer.Notify(actor, msg)
	}
}

func (e *entry) definition() crate.Definition {
	def := e.def.Clone()
	def.Prizes = e.pool.Candidates()
	return def
}

func (e *entry) status() Status {
	ph := e.ctl.Phase()
	actor, _ := e.ctl.Actor()
	return Status{
		Name:        e.def.Name,
		Size:        e.def.Size,
		Capacity:    e.pool.Capacity(),
		Prizes:      e.pool.Len(),
		Key:         e.def.KeyName,
		Color:       e.def.Color,
		Orientation: e.def.Orientation,
		Location:    e.def.Location,
		Phase:       ph.Kind.String(),
		Degree:      ph.Degree,
		Actor:       actor,
		Ready:       !e.pool.Empty() && e.ctl.CanTrigger(),
	}
}
