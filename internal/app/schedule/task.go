package schedule

import (
	"context"
	"sort"
	"sync"
)

type Task struct {
	id       uint64
	owner    *Scheduler
	fn       func()
	due      uint64
	interval uint64

	cancelledFlag bool
	finished      bool
	done          chan struct{}
}

// Cancel stops future runs. It reports false when the task already finished
// or was cancelled before.
func (t *Task) Cancel() bool {
	if t == nil {
		return false
	}
	s := t.owner
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.cancelledFlag || t.finished {
		return false
	}
	t.cancelledFlag = true
	delete(s.tasks, t.id)
	t.finishLocked()
	return true
}

// Done is closed once the task will never run again.
func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) cancelled() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return t.cancelledFlag
}

func (t *Task) isCancelledLocked() bool { return t.cancelledFlag }

func (t *Task) finishLocked() {
	if t.finished {
		return
	}
	t.finished = true
	close(t.done)
}

func sortTasks(tasks []*Task) {
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].id < tasks[j].id })
}

// Future resolves once posted work has run on the tick goroutine.
type Future struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

func (f *Future) Done() <-chan struct{} { return f.done }

func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
