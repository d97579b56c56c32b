package delivery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

var ErrQueueClosed = errors.New("delivery queue closed")

type opKind int

const (
	opAppend opKind = iota + 1
	opDelete
)

type op struct {
	kind opKind
	rec  ports.DeliveryRecord
	id   string
}

// Queue holds reward batches owed to offline actors. Reads and writes are
// served from memory; the repository is updated by a background writer so
// callers on the tick goroutine never wait on storage.
type Queue struct {
	mu      sync.Mutex
	pending map[world.ObserverID][]ports.DeliveryRecord
	closed  bool

	repo   ports.DeliveryRepository
	logger *log.Logger
	now    func() time.Time
	seq    atomic.Uint64

	ch   chan op
	wg   sync.WaitGroup
	once sync.Once
}

func NewQueue(repo ports.DeliveryRepository, logger *log.Logger, now func() time.Time) *Queue {
	if logger == nil {
		logger = log.Default()
	}
	if now == nil {
		now = time.Now
	}
	q := &Queue{
		pending: map[world.ObserverID][]ports.DeliveryRecord{},
		repo:    repo,
		logger:  logger,
		now:     now,
		ch:      make(chan op, 4096),
	}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.loop()
	}()
	return q
}

// Load restores batches persisted by a previous run.
func (q *Queue) Load(ctx context.Context) error {
	if q.repo == nil {
		return nil
	}
	recs, err := q.repo.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("load pending deliveries: %w", err)
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, r := range recs {
		q.pending[r.Observer] = append(q.pending[r.Observer], r)
	}
	return nil
}

func (q *Queue) Enqueue(actor world.ObserverID, crateName string, items []crate.Item) (ports.DeliveryRecord, error) {
	now := q.now().UTC()
	rec := ports.DeliveryRecord{
		ID:        fmt.Sprintf("%d-%d", now.UnixNano(), q.seq.Add(1)),
		Observer:  actor,
		Crate:     crateName,
		Items:     crate.CloneItems(items),
		CreatedAt: now,
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ports.DeliveryRecord{}, ErrQueueClosed
	}
	q.pending[actor] = append(q.pending[actor], rec)
	q.write(op{kind: opAppend, rec: rec})
	q.mu.Unlock()
	return rec, nil
}

func (q *Queue) Pending(actor world.ObserverID) []ports.DeliveryRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]ports.DeliveryRecord(nil), q.pending[actor]...)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, recs := range q.pending {
		n += len(recs)
	}
	return n
}

// Redeem hands every owed batch to the actor in the order they were queued.
// A batch leaves the queue only after the inventory accepted it; redemption
// stops at the first batch that does not fit.
func (q *Queue) Redeem(actor world.ObserverID, inv ports.Inventory) ([]ports.DeliveryRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	recs := q.pending[actor]
	var delivered []ports.DeliveryRecord
	for len(recs) > 0 {
		rec := recs[0]
		if !inv.CanFit(actor, rec.Items) {
			q.setLocked(actor, recs)
			return delivered, ports.ErrInventoryFull
		}
		if err := inv.Add(actor, rec.Items); err != nil {
			q.setLocked(actor, recs)
			return delivered, err
		}
		recs = recs[1:]
		delivered = append(delivered, rec)
		q.write(op{kind: opDelete, id: rec.ID})
	}
	q.setLocked(actor, nil)
	return delivered, nil
}

func (q *Queue) setLocked(actor world.ObserverID, recs []ports.DeliveryRecord) {
	if len(recs) == 0 {
		delete(q.pending, actor)
		return
	}
	q.pending[actor] = recs
}

// write must be called with q.mu held.
func (q *Queue) write(o op) {
	if q.repo == nil {
		return
	}
	if q.closed {
		q.apply(context.Background(), o)
		return
	}
	select {
	case q.ch <- o:
	default:
		q.logger.Printf("delivery writer backlog full, writing inline")
		q.apply(context.Background(), o)
	}
}

func (q *Queue) loop() {
	ctx := context.Background()
	for o := range q.ch {
		q.apply(ctx, o)
	}
}

func (q *Queue) apply(ctx context.Context, o op) {
	var err error
	switch o.kind {
	case opAppend:
		err = q.repo.Append(ctx, o.rec)
	case opDelete:
		err = q.repo.Delete(ctx, o.id)
		if errors.Is(err, ports.ErrNotFound) {
			err = nil
		}
	}
	if err != nil {
		q.logger.Printf("delivery persistence failed: %v", err)
	}
}

// Close stops accepting batches and waits for pending writes.
func (q *Queue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.ch)
		q.wg.Wait()
	})
}
