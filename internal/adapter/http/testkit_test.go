package httpadapter

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	memoryinv "crateworks/internal/adapter/inventory/memory"
	metricsinmem "crateworks/internal/adapter/metrics/inmemory"
	"crateworks/internal/adapter/world/presence"
	"crateworks/internal/app/crates"
	"crateworks/internal/app/delivery"
	"crateworks/internal/app/keys"
	"crateworks/internal/app/ports"
	"crateworks/internal/app/prompt"
	"crateworks/internal/app/schedule"
	"crateworks/internal/app/session"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/reward"
	"crateworks/internal/domain/world"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/route/param"
)

type nopDispatch struct{}

func (nopDispatch) Show(string, []world.ObserverID, ports.PartState)                             {}
func (nopDispatch) Hide(string, []world.ObserverID)                                              {}
func (nopDispatch) UpdatePose(string, []world.ObserverID, crate.Pose)                            {}
func (nopDispatch) UpdateEquipment(string, []world.ObserverID, crate.EquipmentSlot, *crate.Item) {}

type recordingAnnouncer struct {
	mu         sync.Mutex
	notes      map[world.ObserverID][]string
	broadcasts []string
}

func (r *recordingAnnouncer) Notify(id world.ObserverID, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notes == nil {
		r.notes = map[world.ObserverID][]string{}
	}
	r.notes[id] = append(r.notes[id], msg)
}

func (r *recordingAnnouncer) Broadcast(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, msg)
}

type fixture struct {
	h       Handler
	sched   *schedule.Scheduler
	dir     *presence.Directory
	inv     *memoryinv.Inventory
	ann     *recordingAnnouncer
	metrics *metricsinmem.Recorder
}

// newFixture wires real use cases with a scheduler that is never run, so
// use-case work executes inline on the test goroutine.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	sched, err := schedule.New(time.Hour)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	t.Cleanup(sched.Close)
	logger := log.New(io.Discard, "", 0)

	f := &fixture{
		sched:   sched,
		dir:     presence.New(),
		inv:     memoryinv.New(memoryinv.DefaultSlots),
		ann:     &recordingAnnouncer{},
		metrics: metricsinmem.NewRecorder(),
	}
	queue := delivery.NewQueue(nil, logger, nil)
	t.Cleanup(queue.Close)
	catalog := keys.NewCatalog()
	bank := keys.NewBank()

	reg, err := crates.NewRegistry(crates.Deps{
		Scheduler:  sched,
		Directory:  f.dir,
		Dispatch:   nopDispatch{},
		Announcer:  f.ann,
		Inventory:  f.inv,
		Catalog:    catalog,
		Bank:       bank,
		Deliveries: queue,
		Metrics:    f.metrics,
		Selector:   reward.NewSelector(7, 11),
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	prompts := prompt.NewManager(sched, f.ann, prompt.DefaultTexts())

	f.h = Handler{
		CratesUC: crates.UseCase{Registry: reg},
		KeysUC: keys.UseCase{
			Catalog:   catalog,
			Bank:      bank,
			Inventory: f.inv,
			Directory: f.dir,
			Usage:     reg,
		},
		SessionUC: session.UseCase{
			Presence:   f.dir,
			Crates:     reg,
			Deliveries: queue,
			Inventory:  f.inv,
			Announcer:  f.ann,
			Metrics:    f.metrics,
			Prompts:    prompts,
			Logger:     logger,
		},
		Prompts:       prompts,
		PromptTimeout: 5,
		KPI:           f.metrics,
	}
	return f
}

type call struct {
	body   any
	params map[string]string
}

func serve(t *testing.T, fn app.HandlerFunc, c call) *app.RequestContext {
	t.Helper()
	ctx := &app.RequestContext{}
	switch b := c.body.(type) {
	case nil:
	case string:
		ctx.Request.SetBody([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		ctx.Request.SetBody(raw)
	}
	for k, v := range c.params {
		ctx.Params = append(ctx.Params, param.Param{Key: k, Value: v})
	}
	fn(context.Background(), ctx)
	return ctx
}

func decodeBody(t *testing.T, ctx *app.RequestContext, out any) {
	t.Helper()
	if err := json.Unmarshal(ctx.Response.Body(), out); err != nil {
		t.Fatalf("unmarshal response %q: %v", ctx.Response.Body(), err)
	}
}

func errorCode(t *testing.T, ctx *app.RequestContext) string {
	t.Helper()
	var body map[string]map[string]any
	decodeBody(t, ctx, &body)
	code, _ := body["error"]["code"].(string)
	return code
}

var spawn = world.Position{World: "overworld", X: 0, Y: 64, Z: 0}

func (f *fixture) seedCrate(t *testing.T) {
	t.Helper()
	key := serve(t, f.h.createKey, call{body: keys.CreateKeyRequest{
		Name: "vote",
		Item: crate.Item{Material: "TRIPWIRE_HOOK", Amount: 1},
	}})
	if got := key.Response.StatusCode(); got != 201 {
		t.Fatalf("create key status got=%d want=201 body=%s", got, key.Response.Body())
	}
	created := serve(t, f.h.createCrate, call{body: crates.CreateRequest{
		Name:        "vote",
		Size:        "ONE",
		Location:    world.Position{World: "overworld", X: 4, Y: 64, Z: 4},
		Orientation: "EW",
		Key:         "vote",
		Prizes: []crates.PrizeRequest{
			{Slot: 0, Item: crate.Item{Material: "DIAMOND", Amount: 1}},
		},
	}})
	if got := created.Response.StatusCode(); got != 201 {
		t.Fatalf("create crate status got=%d want=201 body=%s", got, created.Response.Body())
	}
}
