package zstdlog

import (
	"errors"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"

	"github.com/google/go-cmp/cmp"
)

func TestLedger_RotatesHourlyAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	l := NewLedger(dir, 16, log.New(io.Discard, "", 0))

	first := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)
	second := first.Add(2 * time.Minute)
	recs := []ports.GrantRecord{
		{Tick: 40, At: first, Crate: "vote", Actor: "alice", Items: []crate.Item{{Material: "DIAMOND", Amount: 1}}},
		{Tick: 41, At: first, Crate: "vote", Actor: "bob", Items: []crate.Item{{Material: "EMERALD", Amount: 2}}, Rare: true},
		{Tick: 90, At: second, Crate: "gold", Actor: "alice", Items: []crate.Item{{Material: "GOLD_INGOT", Amount: 8}}, Queued: true},
	}
	for _, rec := range recs {
		if err := l.Record(rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	w := NewWriter(dir, "grants")
	got, err := ReadFile(w.PathForHour(first))
	if err != nil {
		t.Fatalf("read first hour: %v", err)
	}
	if diff := cmp.Diff(recs[:2], got); diff != "" {
		t.Fatalf("first hour mismatch (-want +got):\n%s", diff)
	}
	got, err = ReadFile(w.PathForHour(second))
	if err != nil {
		t.Fatalf("read second hour: %v", err)
	}
	if diff := cmp.Diff(recs[2:], got); diff != "" {
		t.Fatalf("second hour mismatch (-want +got):\n%s", diff)
	}
}

func TestLedger_RecordAfterClose(t *testing.T) {
	l := NewLedger(t.TempDir(), 1, log.New(io.Discard, "", 0))
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := l.Record(ports.GrantRecord{At: time.Now()}); !errors.Is(err, ErrLedgerClosed) {
		t.Fatalf("expected ErrLedgerClosed, got=%v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestWriter_AppendsToExistingHour(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		w := NewWriter(dir, "grants")
		if err := w.Write(at, ports.GrantRecord{Tick: uint64(i), At: at}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	path := NewWriter(dir, "grants").PathForHour(at)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records got=%d want=2", len(got))
	}
}
