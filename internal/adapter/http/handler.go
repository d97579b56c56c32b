package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"crateworks/internal/app/crates"
	"crateworks/internal/app/keys"
	"crateworks/internal/app/ports"
	"crateworks/internal/app/prompt"
	"crateworks/internal/app/session"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/reward"
	"crateworks/internal/domain/world"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const defaultPromptTimeoutTicks = 1200

type Handler struct {
	CratesUC      crates.UseCase
	KeysUC        keys.UseCase
	SessionUC     session.UseCase
	Prompts       *prompt.Manager
	PromptTimeout int // ticks
	CORSOrigin    string
	KPI           kpiSnapshotProvider
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware(h.CORSOrigin))

	c := s.Group("/api/crates")
	c.GET("", h.listCrates)
	c.POST("", h.createCrate)
	c.GET("/:name", h.getCrate)
	c.PATCH("/:name", h.updateCrate)
	c.DELETE("/:name", h.deleteCrate)
	c.PUT("/:name/skin", h.setSkin)
	c.POST("/:name/prizes", h.addPrize)
	c.PATCH("/:name/prizes/:slot", h.updatePrize)
	c.DELETE("/:name/prizes/:slot", h.removePrize)
	c.POST("/:name/prizes/:slot/weight-prompt", h.askWeight)
	c.GET("/:name/can-trigger", h.canTrigger)
	c.POST("/:name/trigger", h.trigger)

	k := s.Group("/api/keys")
	k.GET("", h.listKeys)
	k.POST("", h.createKey)
	k.DELETE("/:name", h.deleteKey)

	t := s.Group("/api/tags")
	t.GET("", h.listTags)
	t.POST("", h.createTag)
	t.DELETE("/:name", h.deleteTag)

	b := s.Group("/api/bank")
	b.POST("/give", h.give)
	b.POST("/deposit", h.deposit)
	b.POST("/withdraw", h.withdraw)
	b.GET("/:observer", h.balance)

	o := s.Group("/api/observers")
	o.POST("/join", h.join)
	o.POST("/move", h.move)
	o.POST("/leave", h.leave)
	o.POST("/chat", h.chat)

	s.GET("/ops/kpi", h.kpi)
}

type triggerRequest struct {
	Actor world.ObserverID `json:"actor"`
}

type weightPromptRequest struct {
	Observer world.ObserverID `json:"observer"`
}

type leaveRequest struct {
	Observer world.ObserverID `json:"observer"`
}

func (h Handler) listCrates(c context.Context, ctx *app.RequestContext) {
	out, err := h.CratesUC.List(c)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"crates": out})
}

func (h Handler) createCrate(c context.Context, ctx *app.RequestContext) {
	var body crates.CreateRequest
	if !bindJSON(ctx, &body) {
		return
	}
	resp, err := h.CratesUC.Create(c, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, resp)
}

func (h Handler) getCrate(c context.Context, ctx *app.RequestContext) {
	resp, err := h.CratesUC.Get(c, ctx.Param("name"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) updateCrate(c context.Context, ctx *app.RequestContext) {
	var body crates.UpdateRequest
	if !bindJSON(ctx, &body) {
		return
	}
	resp, err := h.CratesUC.Update(c, ctx.Param("name"), body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) deleteCrate(c context.Context, ctx *app.RequestContext) {
	if err := h.CratesUC.Delete(c, ctx.Param("name")); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.SetStatusCode(consts.StatusNoContent)
}

func (h Handler) setSkin(c context.Context, ctx *app.RequestContext) {
	var body crates.SkinRequest
	if !bindJSON(ctx, &body) {
		return
	}
	resp, err := h.CratesUC.SetSkin(c, ctx.Param("name"), body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) addPrize(c context.Context, ctx *app.RequestContext) {
	var body crates.PrizeRequest
	if !bindJSON(ctx, &body) {
		return
	}
	resp, err := h.CratesUC.AddPrize(c, ctx.Param("name"), body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, resp)
}

func (h Handler) updatePrize(c context.Context, ctx *app.RequestContext) {
	slot, ok := slotParam(ctx)
	if !ok {
		return
	}
	var body crates.PrizePatch
	if !bindJSON(ctx, &body) {
		return
	}
	resp, err := h.CratesUC.UpdatePrize(c, ctx.Param("name"), slot, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) removePrize(c context.Context, ctx *app.RequestContext) {
	slot, ok := slotParam(ctx)
	if !ok {
		return
	}
	resp, err := h.CratesUC.RemovePrize(c, ctx.Param("name"), slot)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

// askWeight opens a chat prompt; the observer's next line becomes the
// prize weight.
func (h Handler) askWeight(c context.Context, ctx *app.RequestContext) {
	if h.Prompts == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "prompts not configured")
		return
	}
	slot, ok := slotParam(ctx)
	if !ok {
		return
	}
	var body weightPromptRequest
	if !bindJSON(ctx, &body) {
		return
	}
	name := ctx.Param("name")
	if _, err := h.CratesUC.Get(c, name); err != nil {
		writeError(ctx, err)
		return
	}
	timeout := h.PromptTimeout
	if timeout <= 0 {
		timeout = defaultPromptTimeoutTicks
	}
	cratesUC := h.CratesUC
	err := h.Prompts.Ask(prompt.Request{
		Observer: body.Observer,
		Min:      crate.MinPromptWeight,
		Max:      crate.MaxPromptWeight,
		Timeout:  timeout,
		Apply: func(ctx context.Context, v float64) error {
			_, err := cratesUC.UpdatePrize(ctx, name, slot, crates.PrizePatch{Weight: &v})
			return err
		},
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusAccepted, map[string]any{"observer": body.Observer, "crate": name, "slot": slot})
}

func (h Handler) canTrigger(c context.Context, ctx *app.RequestContext) {
	name := ctx.Param("name")
	ok, err := h.CratesUC.CanTrigger(c, name)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"crate": name, "ready": ok})
}

func (h Handler) trigger(c context.Context, ctx *app.RequestContext) {
	var body triggerRequest
	if !bindJSON(ctx, &body) {
		return
	}
	resp, err := h.CratesUC.Trigger(c, crates.TriggerRequest{Crate: ctx.Param("name"), Actor: body.Actor})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusAccepted, resp)
}

func (h Handler) listKeys(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{"keys": h.KeysUC.ListKeys()})
}

func (h Handler) createKey(c context.Context, ctx *app.RequestContext) {
	var body keys.CreateKeyRequest
	if !bindJSON(ctx, &body) {
		return
	}
	resp, err := h.KeysUC.CreateKey(c, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, resp)
}

func (h Handler) deleteKey(c context.Context, ctx *app.RequestContext) {
	if err := h.KeysUC.DeleteKey(c, ctx.Param("name")); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.SetStatusCode(consts.StatusNoContent)
}

func (h Handler) listTags(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{"tags": h.KeysUC.ListTags()})
}

func (h Handler) createTag(c context.Context, ctx *app.RequestContext) {
	var body crate.Tag
	if !bindJSON(ctx, &body) {
		return
	}
	resp, err := h.KeysUC.CreateTag(c, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, resp)
}

func (h Handler) deleteTag(c context.Context, ctx *app.RequestContext) {
	if err := h.KeysUC.DeleteTag(c, ctx.Param("name")); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.SetStatusCode(consts.StatusNoContent)
}

func (h Handler) give(c context.Context, ctx *app.RequestContext) {
	var body keys.GiveRequest
	if !bindJSON(ctx, &body) {
		return
	}
	resp, err := h.KeysUC.Give(c, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) deposit(c context.Context, ctx *app.RequestContext) {
	var body keys.TransferRequest
	if !bindJSON(ctx, &body) {
		return
	}
	resp, err := h.KeysUC.Deposit(c, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) withdraw(c context.Context, ctx *app.RequestContext) {
	var body keys.TransferRequest
	if !bindJSON(ctx, &body) {
		return
	}
	resp, err := h.KeysUC.Withdraw(c, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) balance(_ context.Context, ctx *app.RequestContext) {
	observer := strings.TrimSpace(ctx.Param("observer"))
	if observer == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "observer is required")
		return
	}
	ctx.JSON(consts.StatusOK, h.KeysUC.Balance(world.ObserverID(observer)))
}

func (h Handler) join(c context.Context, ctx *app.RequestContext) {
	var body session.JoinRequest
	if !bindJSON(ctx, &body) {
		return
	}
	resp, err := h.SessionUC.Join(c, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) move(c context.Context, ctx *app.RequestContext) {
	var body session.MoveRequest
	if !bindJSON(ctx, &body) {
		return
	}
	if err := h.SessionUC.Move(c, body); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.SetStatusCode(consts.StatusNoContent)
}

func (h Handler) leave(c context.Context, ctx *app.RequestContext) {
	var body leaveRequest
	if !bindJSON(ctx, &body) {
		return
	}
	if err := h.SessionUC.Leave(c, body.Observer); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.SetStatusCode(consts.StatusNoContent)
}

func (h Handler) chat(c context.Context, ctx *app.RequestContext) {
	var body session.ChatRequest
	if !bindJSON(ctx, &body) {
		return
	}
	resp, err := h.SessionUC.Chat(c, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func bindJSON(ctx *app.RequestContext, out any) bool {
	if err := decodeJSON(ctx, out); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return false
	}
	return true
}

func slotParam(ctx *app.RequestContext) (int, bool) {
	slot, err := strconv.Atoi(ctx.Param("slot"))
	if err != nil || slot < 0 {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_slot", "invalid slot")
		return 0, false
	}
	return slot, true
}

func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, crates.ErrCrateBusy), errors.Is(err, crates.ErrCooldown):
		code := "crate_busy"
		if errors.Is(err, crates.ErrCooldown) {
			code = "cooldown_active"
		}
		writeErrorBody(ctx, consts.StatusConflict, code, err.Error())
	case errors.Is(err, crates.ErrNoKey):
		writeErrorBody(ctx, consts.StatusForbidden, "no_key", err.Error())
	case errors.Is(err, crates.ErrEmptyPool), errors.Is(err, reward.ErrNoCandidates):
		writeErrorBody(ctx, consts.StatusConflict, "empty_pool", err.Error())
	case errors.Is(err, ports.ErrOffline):
		writeErrorBody(ctx, consts.StatusConflict, "observer_offline", err.Error())
	case errors.Is(err, ports.ErrInventoryFull):
		writeErrorBody(ctx, consts.StatusConflict, "INVENTORY_FULL", err.Error())
	case errors.Is(err, keys.ErrInsufficientKeys):
		writeErrorBody(ctx, consts.StatusConflict, "insufficient_keys", err.Error())
	case errors.Is(err, keys.ErrCatalogFull), errors.Is(err, crate.ErrPoolFull):
		writeErrorBody(ctx, consts.StatusConflict, "capacity_reached", err.Error())
	case errors.Is(err, crate.ErrSlotOccupied):
		writeErrorBody(ctx, consts.StatusConflict, "slot_occupied", err.Error())
	case errors.Is(err, keys.ErrUnknownKey),
		errors.Is(err, keys.ErrUnknownTag),
		errors.Is(err, crate.ErrPrizeNotFound),
		errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, crates.ErrInvalidRequest),
		errors.Is(err, keys.ErrInvalidRequest),
		errors.Is(err, keys.ErrInvalidAmount),
		errors.Is(err, session.ErrInvalidRequest),
		errors.Is(err, prompt.ErrInvalidPrompt),
		errors.Is(err, crate.ErrInvalidDefinition),
		errors.Is(err, crate.ErrInvalidSize),
		errors.Is(err, crate.ErrInvalidOrientation),
		errors.Is(err, crate.ErrInvalidItem),
		errors.Is(err, crate.ErrInvalidKey),
		errors.Is(err, crate.ErrInvalidTag),
		errors.Is(err, crate.ErrInvalidPrize),
		errors.Is(err, crate.ErrSlotOutOfRange),
		errors.Is(err, world.ErrInvalidPosition):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error())
	case errors.Is(err, ports.ErrUnavailable), errors.Is(err, crates.ErrClosed):
		writeErrorBody(ctx, consts.StatusServiceUnavailable, "unavailable", err.Error())
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
