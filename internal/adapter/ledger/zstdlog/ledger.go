package zstdlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"

	"crateworks/internal/app/ports"
)

var (
	ErrLedgerClosed = errors.New("grant ledger closed")
	ErrLedgerFull   = errors.New("grant ledger backlog full")
)

// Ledger records grants on a background goroutine so callers on the tick
// goroutine never touch the disk.
type Ledger struct {
	w      *Writer
	logger *log.Logger

	mu      sync.RWMutex
	closed  bool
	ch      chan ports.GrantRecord
	dropped atomic.Uint64
	done    chan struct{}
}

func NewLedger(dir string, backlog int, logger *log.Logger) *Ledger {
	if backlog <= 0 {
		backlog = 1024
	}
	if logger == nil {
		logger = log.Default()
	}
	l := &Ledger{
		w:      NewWriter(dir, "grants"),
		logger: logger,
		ch:     make(chan ports.GrantRecord, backlog),
		done:   make(chan struct{}),
	}
	go l.loop()
	return l
}

func (l *Ledger) Record(rec ports.GrantRecord) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrLedgerClosed
	}
	select {
	case l.ch <- rec:
		return nil
	default:
		l.dropped.Add(1)
		return ErrLedgerFull
	}
}

func (l *Ledger) Dropped() uint64 { return l.dropped.Load() }

func (l *Ledger) loop() {
	defer close(l.done)
	for rec := range l.ch {
		if err := l.w.Write(rec.At, rec); err != nil {
			l.logger.Printf("grant ledger: %v", err)
			continue
		}
		if len(l.ch) == 0 {
			if err := l.w.Flush(); err != nil {
				l.logger.Printf("grant ledger flush: %v", err)
			}
		}
	}
}

// Close drains the backlog and closes the current file.
func (l *Ledger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.ch)
	l.mu.Unlock()
	<-l.done
	return l.w.Close()
}

// ReadFile decodes one ledger file.
func ReadFile(path string) ([]ports.GrantRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []ports.GrantRecord
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var rec ports.GrantRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}
