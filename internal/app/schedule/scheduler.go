package schedule

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrInvalidPeriod   = errors.New("invalid tick period")
	ErrInvalidInterval = errors.New("invalid tick interval")
	ErrClosed          = errors.New("scheduler closed")
)

// Scheduler runs every piece of simulation work on one tick goroutine.
// Other goroutines hand work over with Post or Call.
type Scheduler struct {
	period time.Duration

	mu     sync.Mutex
	tick   uint64
	nextID uint64
	tasks  map[uint64]*Task
	closed bool

	inbox chan posted
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

type posted struct {
	fn     func() error
	future *Future
}

func New(period time.Duration) (*Scheduler, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	return &Scheduler{
		period: period,
		tasks:  map[uint64]*Task{},
		inbox:  make(chan posted, 1024),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

func (s *Scheduler) Period() time.Duration { return s.period }

// Tick is the number of ticks completed so far.
func (s *Scheduler) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Every runs fn on the tick goroutine once every interval ticks, starting
// interval ticks from now.
func (s *Scheduler) Every(interval int, fn func()) (*Task, error) {
	return s.register(interval, interval, fn)
}

// After runs fn once, delay ticks from now.
func (s *Scheduler) After(delay int, fn func()) (*Task, error) {
	return s.register(delay, 0, fn)
}

func (s *Scheduler) register(delay, interval int, fn func()) (*Task, error) {
	if delay <= 0 || interval < 0 || fn == nil {
		return nil, ErrInvalidInterval
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	s.nextID++
	t := &Task{
		id:       s.nextID,
		owner:    s,
		fn:       fn,
		due:      s.tick + uint64(delay),
		interval: uint64(interval),
		done:     make(chan struct{}),
	}
	s.tasks[t.id] = t
	return t, nil
}

// Post queues fn to run on the tick goroutine ahead of the next tick.
func (s *Scheduler) Post(fn func()) *Future {
	return s.post(func() error {
		fn()
		return nil
	})
}

// Call runs fn on the tick goroutine and waits for its result.
func (s *Scheduler) Call(ctx context.Context, fn func() error) error {
	f := s.post(fn)
	return f.Wait(ctx)
}

func (s *Scheduler) post(fn func() error) *Future {
	f := newFuture()
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		f.resolve(ErrClosed)
		return f
	}
	select {
	case s.inbox <- posted{fn: fn, future: f}:
	case <-s.stop:
		f.resolve(ErrClosed)
	}
	return f
}

// Run drives the ticker until ctx is cancelled or Close is called. Posted
// work runs as soon as it arrives; timed tasks run on tick boundaries.
func (s *Scheduler) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.failPending()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return ctx.Err()
		case <-s.stop:
			return nil
		case p := <-s.inbox:
			s.execute(p)
		case <-ticker.C:
			s.advance()
		}
	}
}

// Step drains posted work and advances exactly one tick on the calling
// goroutine. It must not be used while Run is active.
func (s *Scheduler) Step() {
	s.drain()
	s.advance()
}

// Drain runs posted work without advancing the tick.
func (s *Scheduler) Drain() {
	s.drain()
}

func (s *Scheduler) drain() {
	for {
		select {
		case p := <-s.inbox:
			s.execute(p)
		default:
			return
		}
	}
}

func (s *Scheduler) execute(p posted) {
	p.future.resolve(p.fn())
}

func (s *Scheduler) advance() {
	s.mu.Lock()
	s.tick++
	now := s.tick
	due := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.due == now {
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	sortTasks(due)
	for _, t := range due {
		if t.cancelled() {
			continue
		}
		t.fn()
		s.mu.Lock()
		if t.interval > 0 && !t.isCancelledLocked() {
			t.due = now + t.interval
		} else {
			delete(s.tasks, t.id)
			t.finishLocked()
		}
		s.mu.Unlock()
	}
}

// Close stops the loop, cancels every task and waits for Run to return when
// it is running.
func (s *Scheduler) Close() {
	s.once.Do(func() {
		s.markClosed()
		close(s.stop)
	})
}

// Wait blocks until Run has returned.
func (s *Scheduler) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) markClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.tasks {
		t.cancelledFlag = true
		t.finishLocked()
		delete(s.tasks, id)
	}
}

func (s *Scheduler) failPending() {
	for {
		select {
		case p := <-s.inbox:
			p.future.resolve(ErrClosed)
		default:
			return
		}
	}
}

// Pending is the number of registered tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
