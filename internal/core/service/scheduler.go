package service

import (
	"context"
	"sync"
	"time"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"
	"github.com/pmxbot/pmxbot-sub000/internal/core/port"

	"github.com/rs/zerolog/log"
)

// Submit hands a job to whoever runs it and returns a channel that is closed once the job has finished.
type Submit func(ctx context.Context, job port.Job) <-chan struct{}

// TimerScheduler fires jobs from timers. A repeating job is re-armed only after its previous run returned, so
// runs never overlap.
type TimerScheduler struct {
	submit Submit
	now    func() time.Time
	wg     sync.WaitGroup
}

// NewTimerScheduler creates a scheduler that delivers due jobs through submit. With a nil submit, jobs run on
// the timer goroutine.
func NewTimerScheduler(submit Submit) *TimerScheduler {
	if submit == nil {
		submit = func(ctx context.Context, job port.Job) <-chan struct{} {
			done := make(chan struct{})
			job(ctx)
			close(done)
			return done
		}
	}

	return &TimerScheduler{submit: submit, now: time.Now}
}

func (s *TimerScheduler) ExecuteAfter(ctx context.Context, d time.Duration, job port.Job) {
	fired := false
	s.run(ctx, func(now time.Time) (time.Time, bool) {
		if fired {
			return time.Time{}, false
		}
		fired = true
		return now.Add(d), true
	}, job)
}

func (s *TimerScheduler) ExecuteEvery(ctx context.Context, d time.Duration, job port.Job) {
	s.run(ctx, func(now time.Time) (time.Time, bool) {
		return now.Add(d), true
	}, job)
}

func (s *TimerScheduler) ExecuteAt(ctx context.Context, t time.Time, job port.Job) {
	fired := false
	s.run(ctx, func(time.Time) (time.Time, bool) {
		if fired {
			return time.Time{}, false
		}
		fired = true
		return t, true
	}, job)
}

func (s *TimerScheduler) ExecuteDaily(ctx context.Context, clock domain.TimeOfDay, job port.Job) {
	s.run(ctx, func(now time.Time) (time.Time, bool) {
		return clock.Next(now), true
	}, job)
}

// Wait blocks until every timer goroutine has stopped.
func (s *TimerScheduler) Wait() {
	s.wg.Wait()
}

func (s *TimerScheduler) run(ctx context.Context, next func(now time.Time) (time.Time, bool), job port.Job) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		for {
			now := s.now()
			when, ok := next(now)
			if !ok {
				return
			}

			log.Debug().Time("when", when).Msg("running schedule timer")

			t := time.NewTimer(when.Sub(now))
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}

			select {
			case <-s.submit(ctx, job):
			case <-ctx.Done():
				return
			}
		}
	}()
}
