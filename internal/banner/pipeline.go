// Package banner drives a banner job from submitted request to print
// artifacts.
package banner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"letterbanner/internal/domain"
	"letterbanner/internal/infra"
	"letterbanner/internal/layout"
	"letterbanner/internal/letters"
	"letterbanner/internal/palette"
	"letterbanner/internal/storage"
)

// Progress milestones reported while a job runs.
const (
	progressLettersDone = 80
	progressBanner      = 85
	progressDocument    = 95
)

const (
	stepSetup     = "Setting up generation..."
	stepBanner    = "Creating banner layout..."
	stepDocument  = "Creating PDF compilation..."
	stepCompleted = "Banner generation completed!"
)

// LetterGenerator produces and edits single letter images.
type LetterGenerator interface {
	Generate(ctx context.Context, spec letters.Spec) (string, error)
	Edit(ctx context.Context, spec letters.EditSpec) (string, error)
}

// ModelCatalog reports which image models can serve a request.
type ModelCatalog interface {
	Has(id string) bool
}

// Mirror copies a finished artifact somewhere durable.
type Mirror interface {
	Upload(ctx context.Context, jobID, localPath string) (string, error)
}

type Options struct {
	Store   domain.JobStore
	Letters LetterGenerator
	Models  ModelCatalog
	Layout  *layout.Engine
	Files   *storage.FileStore
	Mirror  Mirror
	Workers int
	Logger  *infra.Logger
}

// Pipeline runs banner jobs in the background and serves follow-up edits.
type Pipeline struct {
	store   domain.JobStore
	letters LetterGenerator
	models  ModelCatalog
	layout  *layout.Engine
	files   *storage.FileStore
	mirror  Mirror
	workers int
	logger  *infra.Logger
	now     func() time.Time
	newID   func() string

	wg    sync.WaitGroup
	locks jobLocks
}

func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Store == nil || opts.Letters == nil || opts.Files == nil {
		return nil, errors.New("banner: store, letters and files are required")
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	engine := opts.Layout
	if engine == nil {
		engine = layout.NewEngine(logger)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 2
	}
	return &Pipeline{
		store:   opts.Store,
		letters: opts.Letters,
		models:  opts.Models,
		layout:  engine,
		files:   opts.Files,
		mirror:  opts.Mirror,
		workers: workers,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// Validate normalizes req and rejects palettes or models that cannot serve
// it. Errors wrap domain.ErrInvalidRequest or domain.ErrUnsupportedModel.
func (p *Pipeline) Validate(req *domain.BannerRequest) error {
	if err := req.Normalize(); err != nil {
		return err
	}
	if !palette.Known(req.ColorPalette) {
		return fmt.Errorf("%w: unknown color palette %q", domain.ErrInvalidRequest, req.ColorPalette)
	}
	if p.models != nil && !p.models.Has(req.Model) {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedModel, req.Model)
	}
	return nil
}

// Submit validates req, records a pending job and starts it in the
// background. The job outlives ctx; use Wait to drain running jobs.
func (p *Pipeline) Submit(ctx context.Context, req domain.BannerRequest) (*domain.Job, error) {
	if err := p.Validate(&req); err != nil {
		return nil, err
	}
	job := domain.NewJob(p.newID(), req, p.now())
	if err := p.store.Create(ctx, job); err != nil {
		return nil, err
	}
	runCtx := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.Run(runCtx, job.ID); err != nil {
			p.logger.Error().Err(err).Str("job_id", job.ID).Msg("pipeline: job failed")
		}
	}()
	return job.Clone(), nil
}

// Wait blocks until background jobs finish or ctx is done.
func (p *Pipeline) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type letterResult struct {
	path string
	err  error
}

// Run executes a stored job to completion. The job is marked failed when no
// letter could be generated or when neither print artifact could be written;
// generated files are kept either way.
func (p *Pipeline) Run(ctx context.Context, jobID string) error {
	log := p.logger.With().Str("job_id", jobID).Logger()

	job, err := p.store.Update(ctx, jobID, func(j *domain.Job) error {
		j.Status = domain.JobStatusProcessing
		j.Progress = 0
		j.CurrentStep = stepSetup
		return nil
	})
	if err != nil {
		return err
	}
	req := job.Request
	pal := palette.Resolve(req.ColorPalette, req.CustomColors)
	p.update(ctx, &log, jobID, func(j *domain.Job) error {
		j.CurrentStep = "Using color palette: " + pal.Name
		return nil
	})

	results := p.generateLetters(ctx, &log, job, pal)

	var paths []string
	var failures []string
	for i, res := range results {
		if res.err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", req.Letters[i].Letter, res.err))
			continue
		}
		paths = append(paths, res.path)
	}
	if err := ctx.Err(); err != nil {
		return p.fail(jobID, &log, err)
	}
	if len(paths) == 0 {
		log.Error().Strs("failures", failures).Msg("pipeline: no letters generated")
		return p.fail(jobID, &log, fmt.Errorf("%w: %s", domain.ErrNoLetters, strings.Join(failures, "; ")))
	}
	if len(failures) > 0 {
		log.Warn().Strs("failures", failures).Int("generated", len(paths)).Msg("pipeline: continuing with partial letters")
	}

	p.update(ctx, &log, jobID, func(j *domain.Job) error {
		for i, path := range paths {
			j.SetFile(domain.LetterFileKey(i), path)
		}
		j.Progress = progressBanner
		j.CurrentStep = stepBanner
		return nil
	})

	var problems []string
	bannerPath, bannerErr := p.writeBanner(job, paths)
	if bannerErr != nil {
		log.Error().Err(bannerErr).Msg("pipeline: banner layout failed")
		problems = append(problems, "banner: "+bannerErr.Error())
	}

	p.update(ctx, &log, jobID, func(j *domain.Job) error {
		if bannerErr == nil {
			j.SetFile(domain.FileBanner, bannerPath)
		}
		j.Progress = progressDocument
		j.CurrentStep = stepDocument
		return nil
	})

	docPath, docErr := p.writeDocument(job, paths)
	if docErr != nil {
		log.Error().Err(docErr).Msg("pipeline: pdf compilation failed")
		problems = append(problems, "pdf: "+docErr.Error())
	}
	if bannerErr != nil && docErr != nil {
		return p.fail(jobID, &log, errors.Join(bannerErr, docErr))
	}

	final, err := p.store.Update(context.WithoutCancel(ctx), jobID, func(j *domain.Job) error {
		if docErr == nil {
			j.SetFile(domain.FilePDF, docPath)
		}
		if len(problems) > 0 {
			j.ErrorMessage = strings.Join(problems, "; ")
		}
		j.Complete(p.now(), stepCompleted)
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Int("letters", len(paths)).Int("failed_letters", len(failures)).Msg("pipeline: job completed")
	p.mirrorFiles(ctx, &log, final)
	return nil
}

func (p *Pipeline) generateLetters(ctx context.Context, log *zerolog.Logger, job *domain.Job, pal palette.Palette) []letterResult {
	specs := job.Request.Letters
	total := len(specs)
	results := make([]letterResult, total)

	var mu sync.Mutex
	done := 0

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = letterResult{err: err}
				return nil
			}
			p.update(ctx, log, job.ID, func(j *domain.Job) error {
				j.CurrentStep = fmt.Sprintf("Generating letter '%s' inspired by %s...", spec.Letter, spec.Object)
				return nil
			})
			path, err := p.letters.Generate(ctx, letters.Spec{
				Index:    i,
				Letter:   spec.Letter,
				Theme:    spec.Object,
				Palette:  pal,
				Model:    job.Request.Model,
				RunStamp: job.RunStamp,
			})
			results[i] = letterResult{path: path, err: err}
			if err != nil {
				log.Warn().Err(err).Str("letter", spec.Letter).Int("index", i).Msg("pipeline: letter failed")
			}

			mu.Lock()
			done++
			progress := done * progressLettersDone / total
			mu.Unlock()
			p.update(ctx, log, job.ID, func(j *domain.Job) error {
				if err == nil {
					j.CompletedLetters++
				}
				j.Progress = max(j.Progress, progress)
				return nil
			})
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Pipeline) writeBanner(job *domain.Job, paths []string) (string, error) {
	dest, err := p.files.Path(BannerKey(job.RunStamp))
	if err != nil {
		return "", err
	}
	return p.layout.BannerFromFiles(paths, dest, 0)
}

func (p *Pipeline) writeDocument(job *domain.Job, paths []string) (string, error) {
	dest, err := p.files.Path(DocumentKey(job.RunStamp, job.Request.Name))
	if err != nil {
		return "", err
	}
	return p.layout.DocumentFromFiles(paths, dest)
}

// BannerKey is the storage key of a run's printable banner.
func BannerKey(stamp string) string {
	return fmt.Sprintf("%s/printable_banner_%s.png", letters.RunDir(stamp), stamp)
}

// DocumentKey is the storage key of a run's letter PDF.
func DocumentKey(stamp, name string) string {
	base := strings.ToLower(strings.TrimSpace(name))
	base = strings.NewReplacer(" ", "_", "/", "-", "\\", "-").Replace(base)
	return fmt.Sprintf("%s/%s_letters_%s.pdf", letters.RunDir(stamp), base, stamp)
}

// update applies a best-effort progress change. Failures are logged because
// the artifacts matter more than a missed progress tick.
func (p *Pipeline) update(ctx context.Context, log *zerolog.Logger, jobID string, fn func(*domain.Job) error) {
	if _, err := p.store.Update(context.WithoutCancel(ctx), jobID, fn); err != nil {
		log.Warn().Err(err).Msg("pipeline: progress update failed")
	}
}

func (p *Pipeline) fail(jobID string, log *zerolog.Logger, cause error) error {
	if _, err := p.store.Update(context.Background(), jobID, func(j *domain.Job) error {
		j.Fail(p.now(), cause)
		return nil
	}); err != nil {
		log.Error().Err(err).Msg("pipeline: could not record failure")
	}
	return cause
}

func (p *Pipeline) mirrorFiles(ctx context.Context, log *zerolog.Logger, job *domain.Job) {
	if p.mirror == nil || job == nil {
		return
	}
	for key, path := range job.Files {
		objectKey, err := p.mirror.Upload(ctx, job.ID, path)
		if err != nil {
			log.Warn().Err(err).Str("file", key).Msg("pipeline: mirror upload failed")
			continue
		}
		log.Debug().Str("file", key).Str("object", objectKey).Msg("pipeline: artifact mirrored")
	}
}

// letterOf recovers the letter from a stored letter file name of the form
// letter_<index>_<L>_....
func letterOf(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(filepath.Base(path), "letter_"), "_", 3)
	if len(parts) < 2 {
		return ""
	}
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return parts[0]
	}
	return parts[1]
}
