package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"letterbanner/internal/domain"
)

// MemoryJobStore keeps jobs in process memory. Callers always receive copies.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
	now  func() time.Time
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: map[string]*domain.Job{}, now: time.Now}
}

func (s *MemoryJobStore) Create(ctx context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("%w: job %s", domain.ErrDuplicateOperation, job.ID)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryJobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job.Clone(), nil
}

func (s *MemoryJobStore) Update(ctx context.Context, id string, fn func(*domain.Job) error) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = s.now()
	s.jobs[id] = working
	return working.Clone(), nil
}

func (s *MemoryJobStore) SweepExpired(ctx context.Context, cutoff time.Time) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []domain.Job
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) {
			removed = append(removed, *job.Clone())
			delete(s.jobs, id)
		}
	}
	return removed, nil
}

func (s *MemoryJobStore) Stats(ctx context.Context) (domain.JobStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := domain.JobStats{Total: len(s.jobs)}
	for _, job := range s.jobs {
		if job.Status.Active() {
			stats.Active++
		}
	}
	return stats, nil
}

var _ domain.JobStore = (*MemoryJobStore)(nil)
