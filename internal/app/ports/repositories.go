package ports

import (
	"context"
	"time"

	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type CrateRepository interface {
	List(ctx context.Context) ([]crate.Definition, error)
	Get(ctx context.Context, name string) (crate.Definition, error)
	Create(ctx context.Context, def crate.Definition) error
	Save(ctx context.Context, def crate.Definition) error
	Delete(ctx context.Context, name string) error
}

type KeyRepository interface {
	List(ctx context.Context) ([]crate.Key, error)
	Create(ctx context.Context, key crate.Key) error
	Delete(ctx context.Context, name string) error
}

type TagRepository interface {
	List(ctx context.Context) ([]crate.Tag, error)
	Create(ctx context.Context, tag crate.Tag) error
	Delete(ctx context.Context, name string) error
}

type BankedKeys struct {
	Observer world.ObserverID
	Key      string
	Count    int
}

type KeyBankRepository interface {
	LoadAll(ctx context.Context) ([]BankedKeys, error)
	Upsert(ctx context.Context, rows []BankedKeys) error
}

type DeliveryRecord struct {
	ID        string           `json:"id"`
	Observer  world.ObserverID `json:"observer"`
	Crate     string           `json:"crate"`
	Items     []crate.Item     `json:"items"`
	CreatedAt time.Time        `json:"created_at"`
}

type DeliveryRepository interface {
	ListPending(ctx context.Context) ([]DeliveryRecord, error)
	Append(ctx context.Context, rec DeliveryRecord) error
	Delete(ctx context.Context, id string) error
}

type GrantRecord struct {
	Tick   uint64           `json:"tick"`
	At     time.Time        `json:"at"`
	Crate  string           `json:"crate"`
	Actor  world.ObserverID `json:"actor"`
	Items  []crate.Item     `json:"items"`
	Rare   bool             `json:"rare"`
	Queued bool             `json:"queued"`
}

// GrantLedger is an append-only audit of granted batches.
type GrantLedger interface {
	Record(rec GrantRecord) error
}
