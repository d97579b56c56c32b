package attrs

import "crateworks/internal/app/schedule"

type tickScheduler struct {
	s *schedule.Scheduler
}

// OnScheduler expires entries on the tick scheduler.
func OnScheduler(s *schedule.Scheduler) Scheduler {
	return tickScheduler{s: s}
}

func (t tickScheduler) After(delay int, fn func()) (Timer, error) {
	task, err := t.s.After(delay, fn)
	if err != nil {
		return nil, err
	}
	return task, nil
}
