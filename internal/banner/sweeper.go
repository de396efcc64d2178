package banner

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"letterbanner/internal/domain"
	"letterbanner/internal/infra"
	"letterbanner/internal/storage"
)

// Sweeper removes jobs older than MaxAge together with their files.
type Sweeper struct {
	store  domain.JobStore
	files  *storage.FileStore
	maxAge time.Duration
	logger *infra.Logger
	now    func() time.Time

	cron *cron.Cron
}

func NewSweeper(store domain.JobStore, files *storage.FileStore, maxAge time.Duration, logger *infra.Logger) *Sweeper {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Sweeper{store: store, files: files, maxAge: maxAge, logger: logger, now: time.Now}
}

// Sweep runs one cleanup pass and returns how many jobs were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	removed, err := s.store.SweepExpired(ctx, s.now().Add(-s.maxAge))
	if err != nil {
		return 0, fmt.Errorf("sweeper: expire jobs: %w", err)
	}
	for _, job := range removed {
		dirs := map[string]struct{}{}
		for name, p := range job.Files {
			key, err := s.files.Key(p)
			if err != nil {
				s.logger.Warn().Err(err).Str("job_id", job.ID).Str("file", name).Msg("sweeper: file outside output dir")
				continue
			}
			if err := s.files.Remove(key); err != nil {
				s.logger.Warn().Err(err).Str("job_id", job.ID).Str("file", name).Msg("sweeper: remove failed")
			}
			dirs[path.Dir(key)] = struct{}{}
		}
		for dir := range dirs {
			if dir == "." {
				continue
			}
			// Fails while another run still has files there.
			_ = s.files.Remove(dir)
		}
	}
	if len(removed) > 0 {
		s.logger.Info().Int("removed", len(removed)).Msg("sweeper: expired jobs removed")
	}
	return len(removed), nil
}

// Start schedules Sweep every interval until Stop is called.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) error {
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error().Err(err).Msg("sweeper: cleanup failed")
		}
	}); err != nil {
		return fmt.Errorf("sweeper: schedule: %w", err)
	}
	s.cron = c
	c.Start()
	s.logger.Info().Dur("interval", interval).Dur("max_age", s.maxAge).Msg("sweeper: started")
	return nil
}

// Stop halts the schedule and waits for a running pass to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
