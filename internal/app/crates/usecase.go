package crates

import (
	"context"
	"errors"
	"strings"

	"crateworks/internal/app/ports"
	"crateworks/internal/app/schedule"
	"crateworks/internal/domain/crate"
)

var ErrInvalidRequest = errors.New("invalid crate request")

// UseCase runs registry work on the tick goroutine and keeps the repository
// in step with it. Repository I/O never happens on the tick goroutine.
type UseCase struct {
	Scheduler *schedule.Scheduler
	Registry  *Registry
	Repo      ports.CrateRepository
}

func (u UseCase) Create(ctx context.Context, req CreateRequest) (Detail, error) {
	def, err := req.definition()
	if err != nil {
		return Detail{}, err
	}
	var detail Detail
	err = u.onTick(ctx, func() error {
		st, err := u.Registry.Create(def)
		if err != nil {
			return err
		}
		detail = Detail{Status: st, Definition: def}
		return nil
	})
	if err != nil {
		return Detail{}, err
	}
	if u.Repo != nil {
		if err := u.Repo.Create(ctx, def); err != nil {
			_ = u.onTick(ctx, func() error { return u.Registry.Delete(def.Name) })
			return Detail{}, err
		}
	}
	return detail, nil
}

func (u UseCase) Delete(ctx context.Context, name string) error {
	if err := u.onTick(ctx, func() error { return u.Registry.Delete(name) }); err != nil {
		return err
	}
	if u.Repo != nil {
		if err := u.Repo.Delete(ctx, name); err != nil && !errors.Is(err, ports.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (u UseCase) Get(ctx context.Context, name string) (Detail, error) {
	var detail Detail
	err := u.onTick(ctx, func() error {
		var err error
		detail, err = u.detail(name)
		return err
	})
	return detail, err
}

func (u UseCase) List(ctx context.Context) ([]Status, error) {
	var out []Status
	err := u.onTick(ctx, func() error {
		out = u.Registry.List()
		return nil
	})
	return out, err
}

// Update applies tier, key and color changes in one step. Shrinking the
// tier evicts prizes and reports them.
func (u UseCase) Update(ctx context.Context, name string, req UpdateRequest) (UpdateResponse, error) {
	var size crate.Size
	if req.Size != nil {
		s, err := crate.ParseSize(*req.Size)
		if err != nil {
			return UpdateResponse{}, err
		}
		size = s
	}
	var resp UpdateResponse
	err := u.mutate(ctx, name, func() error {
		if req.Key != nil {
			if err := u.Registry.ChangeKey(name, strings.TrimSpace(*req.Key)); err != nil {
				return err
			}
		}
		if req.Color != nil {
			if err := u.Registry.ChangeColor(name, strings.TrimSpace(*req.Color)); err != nil {
				return err
			}
		}
		if req.Size != nil {
			evicted, err := u.Registry.Resize(name, size)
			if err != nil {
				return err
			}
			resp.Evicted = evicted
		}
		return nil
	}, &resp.Detail)
	return resp, err
}

func (u UseCase) SetSkin(ctx context.Context, name string, req SkinRequest) (Detail, error) {
	var detail Detail
	err := u.mutate(ctx, name, func() error {
		return u.Registry.ChangeSkin(name, req.Index, req.Item)
	}, &detail)
	return detail, err
}

func (u UseCase) AddPrize(ctx context.Context, name string, req PrizeRequest) (Detail, error) {
	p := req.Prize()
	var detail Detail
	err := u.mutate(ctx, name, func() error { return u.Registry.AddPrize(name, p) }, &detail)
	return detail, err
}

func (u UseCase) RemovePrize(ctx context.Context, name string, slot int) (Detail, error) {
	var detail Detail
	err := u.mutate(ctx, name, func() error {
		_, err := u.Registry.RemovePrize(name, slot)
		return err
	}, &detail)
	return detail, err
}

func (u UseCase) UpdatePrize(ctx context.Context, name string, slot int, patch PrizePatch) (crate.Prize, error) {
	var p crate.Prize
	err := u.mutate(ctx, name, func() error {
		var err error
		p, err = u.Registry.UpdatePrize(name, slot, patch)
		return err
	}, nil)
	return p, err
}

func (u UseCase) CanTrigger(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := u.onTick(ctx, func() error {
		ok = u.Registry.CanTrigger(name)
		return nil
	})
	return ok, err
}

func (u UseCase) Trigger(ctx context.Context, req TriggerRequest) (TriggerResult, error) {
	if strings.TrimSpace(req.Crate) == "" || strings.TrimSpace(string(req.Actor)) == "" {
		return TriggerResult{}, ErrInvalidRequest
	}
	var res TriggerResult
	err := u.onTick(ctx, func() error {
		var err error
		res, err = u.Registry.Trigger(req.Crate, req.Actor)
		return err
	})
	return res, err
}

// mutate changes one construct on the tick goroutine, then saves the
// resulting definition. A failed change or save puts the construct back.
func (u UseCase) mutate(ctx context.Context, name string, fn func() error, out *Detail) error {
	var (
		before crate.Definition
		detail Detail
	)
	err := u.onTick(ctx, func() error {
		var err error
		if before, err = u.Registry.Definition(name); err != nil {
			return err
		}
		if err := fn(); err != nil {
			if rerr := u.Registry.Restore(before); rerr != nil {
				return errors.Join(err, rerr)
			}
			return err
		}
		detail, err = u.detail(name)
		return err
	})
	if err != nil {
		return err
	}
	if u.Repo != nil {
		if err := u.Repo.Save(ctx, detail.Definition); err != nil {
			if rerr := u.onTick(ctx, func() error { return u.Registry.Restore(before) }); rerr != nil {
				return errors.Join(err, rerr)
			}
			return err
		}
	}
	if out != nil {
		*out = detail
	}
	return nil
}

func (u UseCase) detail(name string) (Detail, error) {
	st, err := u.Registry.Status(name)
	if err != nil {
		return Detail{}, err
	}
	def, err := u.Registry.Definition(name)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Status: st, Definition: def}, nil
}

func (u UseCase) onTick(ctx context.Context, fn func() error) error {
	if u.Scheduler == nil {
		return fn()
	}
	return u.Scheduler.Call(ctx, fn)
}

func (r CreateRequest) definition() (crate.Definition, error) {
	size, err := crate.ParseSize(r.Size)
	if err != nil {
		return crate.Definition{}, err
	}
	orientation := crate.OrientationForFacing(r.Facing)
	if strings.TrimSpace(r.Orientation) != "" {
		o, err := crate.ParseOrientation(r.Orientation)
		if err != nil {
			return crate.Definition{}, err
		}
		orientation = o
	}
	def := crate.Definition{
		Name:        strings.TrimSpace(r.Name),
		Size:        size,
		Location:    r.Location,
		Orientation: orientation,
		Color:       strings.TrimSpace(r.Color),
		KeyName:     strings.TrimSpace(r.Key),
		Skin:        r.Skin,
		Prizes:      PrizesFrom(r.Prizes),
	}
	if err := def.Validate(); err != nil {
		return crate.Definition{}, err
	}
	return def, nil
}
