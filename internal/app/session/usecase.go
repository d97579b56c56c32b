package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"crateworks/internal/app/delivery"
	"crateworks/internal/app/phase"
	"crateworks/internal/app/ports"
	"crateworks/internal/app/prompt"
	"crateworks/internal/app/schedule"
	"crateworks/internal/domain/world"
)

var ErrInvalidRequest = errors.New("invalid session request")

// Forgetter drops per-observer render state. Called on the tick goroutine.
type Forgetter interface {
	ForgetObserver(id world.ObserverID)
}

// UseCase handles observers joining, moving, chatting and leaving.
type UseCase struct {
	Scheduler  *schedule.Scheduler
	Presence   ports.Presence
	Crates     Forgetter
	Deliveries *delivery.Queue
	Inventory  ports.Inventory
	Announcer  ports.Announcer
	Messages   phase.Messages
	Metrics    ports.TriggerMetrics
	Prompts    *prompt.Manager
	Logger     *log.Logger
}

// Join connects the observer and hands over every queued batch that fits.
func (u UseCase) Join(ctx context.Context, req JoinRequest) (JoinResponse, error) {
	if strings.TrimSpace(string(req.Observer)) == "" {
		return JoinResponse{}, ErrInvalidRequest
	}
	if err := req.Position.Validate(); err != nil {
		return JoinResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := u.Presence.Connect(req.Observer, req.Position); err != nil {
		return JoinResponse{}, err
	}
	resp := JoinResponse{Observer: req.Observer, Delivered: []ports.DeliveryRecord{}}
	if u.Deliveries == nil {
		return resp, nil
	}
	msgs := u.Messages.WithDefaults()
	err := u.onTick(ctx, func() error {
		got, err := u.Deliveries.Redeem(req.Observer, u.Inventory)
		for _, rec := range got {
			u.notify(req.Observer, msgs.DeliveredFor(rec.Crate))
		}
		if len(got) > 0 && u.Metrics != nil {
			u.Metrics.RecordRedeemed(len(got))
		}
		resp.Delivered = append(resp.Delivered, got...)
		resp.Pending = len(u.Deliveries.Pending(req.Observer))
		switch {
		case errors.Is(err, ports.ErrInventoryFull):
			u.notify(req.Observer, msgs.InventoryFull)
		case err != nil:
			u.logger().Printf("redeem for %s: %v", req.Observer, err)
		}
		return nil
	})
	return resp, err
}

func (u UseCase) Move(_ context.Context, req MoveRequest) error {
	if strings.TrimSpace(string(req.Observer)) == "" {
		return ErrInvalidRequest
	}
	if err := req.Position.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return u.Presence.Move(req.Observer, req.Position)
}

// Leave disconnects the observer. Anything it was owed from a running
// construct is queued by the construct itself on its next tick.
func (u UseCase) Leave(ctx context.Context, id world.ObserverID) error {
	if strings.TrimSpace(string(id)) == "" {
		return ErrInvalidRequest
	}
	if !u.Presence.Disconnect(id) {
		return ports.ErrOffline
	}
	if u.Prompts != nil {
		u.Prompts.Cancel(id)
	}
	if u.Crates == nil {
		return nil
	}
	return u.onTick(ctx, func() error {
		u.Crates.ForgetObserver(id)
		return nil
	})
}

// Chat offers a line to the observer's open prompt. Unclaimed lines are
// ordinary chat and go to everyone.
func (u UseCase) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if strings.TrimSpace(string(req.Observer)) == "" {
		return ChatResponse{}, ErrInvalidRequest
	}
	if _, ok := u.Presence.Position(req.Observer); !ok {
		return ChatResponse{}, ports.ErrOffline
	}
	if u.Prompts != nil {
		handled, err := u.Prompts.Answer(ctx, req.Observer, req.Text)
		if handled {
			if errors.Is(err, prompt.ErrNotANumber) || errors.Is(err, prompt.ErrOutOfRange) {
				err = nil
			}
			return ChatResponse{Handled: true}, err
		}
	}
	if u.Announcer != nil && strings.TrimSpace(req.Text) != "" {
		u.Announcer.Broadcast(fmt.Sprintf("<%s> %s", req.Observer, req.Text))
	}
	return ChatResponse{}, nil
}

func (u UseCase) onTick(ctx context.Context, fn func() error) error {
	if u.Scheduler == nil {
		return fn()
	}
	return u.Scheduler.Call(ctx, fn)
}

func (u UseCase) notify(id world.ObserverID, msg string) {
	if u.Announcer != nil && msg != "" {
		u.Announcer.Notify(id, msg)
	}
}

func (u UseCase) logger() *log.Logger {
	if u.Logger != nil {
		return u.Logger
	}
	return log.Default()
}
