package port

import (
	"context"
	"time"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"
)

// Job is a scheduled callback.
type Job func(ctx context.Context)

type Scheduler interface {
	// ExecuteAfter runs job once after d.
	ExecuteAfter(ctx context.Context, d time.Duration, job Job)
	// ExecuteEvery runs job every d, waiting for each run to finish before starting the next period.
	ExecuteEvery(ctx context.Context, d time.Duration, job Job)
	// ExecuteAt runs job once at t.
	ExecuteAt(ctx context.Context, t time.Time, job Job)
	// ExecuteDaily runs job every day at clock.
	ExecuteDaily(ctx context.Context, clock domain.TimeOfDay, job Job)
}
