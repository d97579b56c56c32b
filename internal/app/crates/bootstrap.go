package crates

import (
	"context"
	"errors"
	"fmt"
	"log"

	"crateworks/internal/app/keys"
	"crateworks/internal/app/ports"
	"crateworks/internal/app/schedule"
	"crateworks/internal/domain/crate"
)

// Seed is a catalog of keys, tags and constructs shipped with a deployment.
type Seed struct {
	Keys   []crate.Key        `json:"keys"`
	Tags   []crate.Tag        `json:"tags"`
	Crates []crate.Definition `json:"crates"`
}

type LoadReport struct {
	Keys    int      `json:"keys"`
	Tags    int      `json:"tags"`
	Crates  int      `json:"crates"`
	Skipped []string `json:"skipped,omitempty"`
}

// Bootstrap moves persisted state into memory at startup.
type Bootstrap struct {
	TxManager ports.TxManager
	KeyRepo   ports.KeyRepository
	TagRepo   ports.TagRepository
	CrateRepo ports.CrateRepository
	Catalog   *keys.Catalog
	Registry  *Registry
	Scheduler *schedule.Scheduler
	Logger    *log.Logger
}

// Import stores the seed entries that do not exist yet. Existing entries
// win over the seed.
func (b Bootstrap) Import(ctx context.Context, seed Seed) (int, error) {
	created := 0
	run := func(ctx context.Context) error {
		created = 0
		for _, k := range seed.Keys {
			if err := k.Validate(); err != nil {
				return fmt.Errorf("seed key %q: %w", k.Name, err)
			}
			ok, err := skipConflict(b.KeyRepo.Create(ctx, k))
			if err != nil {
				return fmt.Errorf("seed key %q: %w", k.Name, err)
			}
			created += ok
		}
		for _, t := range seed.Tags {
			if err := t.Validate(); err != nil {
				return fmt.Errorf("seed tag %q: %w", t.Name, err)
			}
			ok, err := skipConflict(b.TagRepo.Create(ctx, t))
			if err != nil {
				return fmt.Errorf("seed tag %q: %w", t.Name, err)
			}
			created += ok
		}
		for _, def := range seed.Crates {
			if err := def.Validate(); err != nil {
				return fmt.Errorf("seed crate %q: %w", def.Name, err)
			}
			ok, err := skipConflict(b.CrateRepo.Create(ctx, def))
			if err != nil {
				return fmt.Errorf("seed crate %q: %w", def.Name, err)
			}
			created += ok
		}
		return nil
	}
	if b.TxManager == nil {
		return created, run(ctx)
	}
	err := b.TxManager.RunInTx(ctx, run)
	return created, err
}

// Load fills the catalog and the registry. Constructs that no longer
// validate against the catalog are skipped and reported.
func (b Bootstrap) Load(ctx context.Context) (LoadReport, error) {
	var rep LoadReport
	ks, err := b.KeyRepo.List(ctx)
	if err != nil {
		return rep, fmt.Errorf("list keys: %w", err)
	}
	for _, k := range ks {
		if err := b.Catalog.AddKey(k); err != nil {
			return rep, fmt.Errorf("load key %q: %w", k.Name, err)
		}
		rep.Keys++
	}
	ts, err := b.TagRepo.List(ctx)
	if err != nil {
		return rep, fmt.Errorf("list tags: %w", err)
	}
	for _, t := range ts {
		if err := b.Catalog.AddTag(t); err != nil {
			return rep, fmt.Errorf("load tag %q: %w", t.Name, err)
		}
		rep.Tags++
	}
	defs, err := b.CrateRepo.List(ctx)
	if err != nil {
		return rep, fmt.Errorf("list crates: %w", err)
	}
	err = b.onTick(ctx, func() error {
		for _, def := range defs {
			if _, err := b.Registry.Create(def); err != nil {
				b.logf("skip crate %s: %v", def.Name, err)
				rep.Skipped = append(rep.Skipped, def.Name)
				continue
			}
			rep.Crates++
		}
		return nil
	})
	return rep, err
}

func (b Bootstrap) onTick(ctx context.Context, fn func() error) error {
	if b.Scheduler == nil {
		return fn()
	}
	return b.Scheduler.Call(ctx, fn)
}

func (b Bootstrap) logf(format string, args ...any) {
	if b.Logger != nil {
		b.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func skipConflict(err error) (int, error) {
	switch {
	case err == nil:
		return 1, nil
	case errors.Is(err, ports.ErrConflict):
		return 0, nil
	default:
		return 0, err
	}
}
