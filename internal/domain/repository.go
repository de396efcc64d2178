package domain

import (
	"context"
	"time"
)

// JobStore persists jobs. Implementations must be safe for concurrent use.
type JobStore interface {
	Create(ctx context.Context, job *Job) error
	// Get returns a copy of the job or ErrNotFound.
	Get(ctx context.Context, id string) (*Job, error)
	// Update applies fn to the stored job atomically and returns the result.
	// An error from fn aborts the update.
	Update(ctx context.Context, id string, fn func(*Job) error) (*Job, error)
	// SweepExpired removes jobs created before cutoff and returns them.
	SweepExpired(ctx context.Context, cutoff time.Time) ([]Job, error)
	Stats(ctx context.Context) (JobStats, error)
}

// JobStats summarizes the store for health reporting.
type JobStats struct {
	Active int `json:"active_jobs"`
	Total  int `json:"total_jobs"`
}
