package clock

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Job: задача планировщика.
type Job func(ctx context.Context)

// Dispatcher передаёт задачу на исполнение в цикл обработки событий.
type Dispatcher func(job Job)

// Scheduler запускает ежедневные и отложенные задачи через Dispatcher.
type Scheduler struct {
	dispatch Dispatcher
	log      zerolog.Logger
	now      func() time.Time

	mu     sync.Mutex
	timers []*time.Timer
}

// NewScheduler создаёт планировщик.
func NewScheduler(dispatch Dispatcher, log zerolog.Logger) *Scheduler {
	return &Scheduler{dispatch: dispatch, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// RunDaily выполняет job каждый день в момент at после полуночи UTC.
func (s *Scheduler) RunDaily(name string, at time.Duration, job Job) {
	var arm func()
	arm = func() {
		wait := nextDaily(s.now(), at)
		s.log.Debug().Str("job", name).Dur("in", wait).Msg("задача запланирована")
		s.add(time.AfterFunc(wait, func() {
			s.dispatch(job)
			arm()
		}))
	}
	arm()
}

// RunOnce выполняет job однократно через delay.
func (s *Scheduler) RunOnce(delay time.Duration, job Job) {
	s.add(time.AfterFunc(delay, func() { s.dispatch(job) }))
}

// Stop отменяет все запланированные задачи.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

func (s *Scheduler) add(t *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers = append(s.timers, t)
}

// nextDaily возвращает задержку до ближайшего наступления времени at (UTC).
func nextDaily(now time.Time, at time.Duration) time.Duration {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	next := midnight.Add(at)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
