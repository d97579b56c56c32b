package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"

	"github.com/google/go-cmp/cmp"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "crateworks.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_DeliveriesRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()
	recs := []ports.DeliveryRecord{
		{ID: "2", Observer: "alice", Crate: "gold", Items: []crate.Item{{Material: "GOLD_INGOT", Amount: 8}}, CreatedAt: base.Add(time.Second)},
		{ID: "1", Observer: "alice", Crate: "vote", Items: []crate.Item{{Material: "DIAMOND", Amount: 1, Name: "Shiny"}}, CreatedAt: base},
	}
	for _, rec := range recs {
		if err := s.Append(ctx, rec); err != nil {
			t.Fatalf("append %s: %v", rec.ID, err)
		}
	}
	if err := s.Append(ctx, recs[0]); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("duplicate append expected ErrConflict, got=%v", err)
	}

	got, err := s.ListPending(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []ports.DeliveryRecord{recs[1], recs[0]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("pending mismatch (-want +got):\n%s", diff)
	}

	if err := s.Delete(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "1"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("second delete expected ErrNotFound, got=%v", err)
	}
}

func TestStore_BankUpsertAndZeroDeletes(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	err := s.Upsert(ctx, []ports.BankedKeys{
		{Observer: "alice", Key: "vote", Count: 3},
		{Observer: "bob", Key: "vote", Count: 1},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, []ports.BankedKeys{{Observer: "alice", Key: "vote", Count: 5}, {Observer: "bob", Key: "vote"}}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []ports.BankedKeys{{Observer: "alice", Key: "vote", Count: 5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("bank mismatch (-want +got):\n%s", diff)
	}
}

func TestOpen_RejectsEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
