package keys

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"crateworks/internal/app/ports"
	"crateworks/internal/app/schedule"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

var ErrInvalidRequest = errors.New("invalid key request")

// Usage reports which constructs still reference a key or a tag.
type Usage interface {
	CratesUsingKey(name string) []string
	CratesUsingTag(name string) []string
}

type UseCase struct {
	Scheduler *schedule.Scheduler
	Catalog   *Catalog
	Bank      *Bank
	Inventory ports.Inventory
	Directory ports.ObserverDirectory
	KeyRepo   ports.KeyRepository
	TagRepo   ports.TagRepository
	BankRepo  ports.KeyBankRepository
	Usage     Usage
}

func (u UseCase) CreateKey(ctx context.Context, req CreateKeyRequest) (crate.Key, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return crate.Key{}, ErrInvalidRequest
	}
	k := crate.Key{Name: name, Item: req.Item}
	if req.Slot != nil {
		k.Slot = *req.Slot
	} else {
		slot, ok := u.Catalog.FreeSlot()
		if !ok {
			return crate.Key{}, ErrCatalogFull
		}
		k.Slot = slot
	}
	if err := u.Catalog.AddKey(k); err != nil {
		return crate.Key{}, err
	}
	if u.KeyRepo != nil {
		if err := u.KeyRepo.Create(ctx, k); err != nil {
			_, _ = u.Catalog.RemoveKey(k.Name)
			return crate.Key{}, err
		}
	}
	return k, nil
}

func (u UseCase) DeleteKey(ctx context.Context, name string) error {
	err := u.onTick(ctx, func() error {
		if users := u.usingKey(name); len(users) > 0 {
			return fmt.Errorf("%w: key %q used by %s", ports.ErrConflict, name, strings.Join(users, ", "))
		}
		if _, err := u.Catalog.RemoveKey(name); err != nil {
			return err
		}
		u.Bank.Forget(name)
		return nil
	})
	if err != nil {
		return err
	}
	if u.KeyRepo != nil {
		return u.KeyRepo.Delete(ctx, name)
	}
	return nil
}

func (u UseCase) ListKeys() []crate.Key { return u.Catalog.Keys() }

func (u UseCase) CreateTag(ctx context.Context, tag crate.Tag) (crate.Tag, error) {
	tag.Name = strings.TrimSpace(tag.Name)
	if err := u.Catalog.AddTag(tag); err != nil {
		return crate.Tag{}, err
	}
	if u.TagRepo != nil {
		if err := u.TagRepo.Create(ctx, tag); err != nil {
			_, _ = u.Catalog.RemoveTag(tag.Name)
			return crate.Tag{}, err
		}
	}
	return tag, nil
}

func (u UseCase) DeleteTag(ctx context.Context, name string) error {
	err := u.onTick(ctx, func() error {
		if users := u.usingTag(name); len(users) > 0 {
			return fmt.Errorf("%w: tag %q used by %s", ports.ErrConflict, name, strings.Join(users, ", "))
		}
		_, err := u.Catalog.RemoveTag(name)
		return err
	})
	if err != nil {
		return err
	}
	if u.TagRepo != nil {
		return u.TagRepo.Delete(ctx, name)
	}
	return nil
}

func (u UseCase) ListTags() []crate.Tag { return u.Catalog.Tags() }

// Give hands keys to an observer. Keys go to the bank when asked for, when
// the observer is offline or when the inventory cannot take them.
func (u UseCase) Give(ctx context.Context, req GiveRequest) (GiveResponse, error) {
	if req.Observer == "" || req.Amount <= 0 {
		return GiveResponse{}, ErrInvalidRequest
	}
	k, ok := u.Catalog.Key(req.Key)
	if !ok {
		return GiveResponse{}, fmt.Errorf("%w: %q", ErrUnknownKey, req.Key)
	}
	var resp GiveResponse
	err := u.onTick(ctx, func() error {
		_, online := u.Directory.Position(req.Observer)
		stacks := UnitStacks(k, req.Amount)
		if !req.Virtual && online && u.Inventory.CanFit(req.Observer, stacks) {
			if err := u.Inventory.Add(req.Observer, stacks); err == nil {
				resp.ToInventory = req.Amount
				return nil
			}
		}
		if err := u.Bank.Add(req.Observer, k.Name, req.Amount); err != nil {
			return err
		}
		resp.ToBank = req.Amount
		return nil
	})
	return resp, err
}

// Deposit moves physical keys from the inventory into the bank.
func (u UseCase) Deposit(ctx context.Context, req TransferRequest) (BalanceResponse, error) {
	k, err := u.transferKey(req)
	if err != nil {
		return BalanceResponse{}, err
	}
	err = u.onTick(ctx, func() error {
		if _, online := u.Directory.Position(req.Observer); !online {
			return ports.ErrOffline
		}
		unit := k.Unit()
		if have := u.Inventory.Count(req.Observer, unit); have < req.Amount {
			return fmt.Errorf("%w: have %d need %d", ErrInsufficientKeys, have, req.Amount)
		}
		moved := 0
		for moved < req.Amount && u.Inventory.RemoveOne(req.Observer, unit) {
			moved++
		}
		if moved == 0 {
			return ErrInsufficientKeys
		}
		return u.Bank.Add(req.Observer, k.Name, moved)
	})
	if err != nil {
		return BalanceResponse{}, err
	}
	return u.Balance(req.Observer), nil
}

// Withdraw moves banked keys into the inventory.
func (u UseCase) Withdraw(ctx context.Context, req TransferRequest) (BalanceResponse, error) {
	k, err := u.transferKey(req)
	if err != nil {
		return BalanceResponse{}, err
	}
	err = u.onTick(ctx, func() error {
		if _, online := u.Directory.Position(req.Observer); !online {
			return ports.ErrOffline
		}
		stacks := UnitStacks(k, req.Amount)
		if !u.Inventory.CanFit(req.Observer, stacks) {
			return ports.ErrInventoryFull
		}
		if err := u.Bank.Take(req.Observer, k.Name, req.Amount); err != nil {
			return err
		}
		if err := u.Inventory.Add(req.Observer, stacks); err != nil {
			_ = u.Bank.Add(req.Observer, k.Name, req.Amount)
			return err
		}
		return nil
	})
	if err != nil {
		return BalanceResponse{}, err
	}
	return u.Balance(req.Observer), nil
}

func (u UseCase) Balance(observer world.ObserverID) BalanceResponse {
	return BalanceResponse{Observer: observer, Banked: u.Bank.Balances(observer)}
}

// Flush persists changed bank counters.
func (u UseCase) Flush(ctx context.Context) (int, error) {
	if u.BankRepo == nil {
		return 0, nil
	}
	return u.Bank.Flush(ctx, u.BankRepo)
}

func (u UseCase) transferKey(req TransferRequest) (crate.Key, error) {
	if req.Observer == "" || req.Amount <= 0 {
		return crate.Key{}, ErrInvalidRequest
	}
	k, ok := u.Catalog.Key(req.Key)
	if !ok {
		return crate.Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, req.Key)
	}
	return k, nil
}

func (u UseCase) usingKey(name string) []string {
	if u.Usage == nil {
		return nil
	}
	return u.Usage.CratesUsingKey(name)
}

func (u UseCase) usingTag(name string) []string {
	if u.Usage == nil {
		return nil
	}
	return u.Usage.CratesUsingTag(name)
}

func (u UseCase) onTick(ctx context.Context, fn func() error) error {
	if u.Scheduler == nil {
		return fn()
	}
	return u.Scheduler.Call(ctx, fn)
}

// UnitStacks splits n key units into full stacks.
func UnitStacks(k crate.Key, n int) []crate.Item {
	unit := k.Unit()
	var out []crate.Item
	for n > 0 {
		it := unit
		it.Amount = min(n, crate.MaxStack)
		out = append(out, it)
		n -= it.Amount
	}
	return out
}
