package banner

import (
	"context"
	"fmt"
	"sync"

	"letterbanner/internal/domain"
	"letterbanner/internal/letters"
)

// jobLocks serializes follow-up work on one job. Entries are dropped once no
// caller holds or waits for them.
type jobLocks struct {
	mu   sync.Mutex
	held map[string]*jobLock
}

type jobLock struct {
	sync.Mutex
	refs int
}

func (l *jobLocks) lock(id string) func() {
	l.mu.Lock()
	if l.held == nil {
		l.held = map[string]*jobLock{}
	}
	jl := l.held[id]
	if jl == nil {
		jl = &jobLock{}
		l.held[id] = jl
	}
	jl.refs++
	l.mu.Unlock()

	jl.Lock()
	return func() {
		jl.Unlock()
		l.mu.Lock()
		if jl.refs--; jl.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}

// EditLetter reworks the index-th generated letter of a completed job with
// prompt, replaces it in the job and rebuilds the banner. Edits of one job run
// one at a time so each banner is built from the latest letters.
func (p *Pipeline) EditLetter(ctx context.Context, jobID string, index int, prompt, model string) (*domain.Job, error) {
	unlock := p.locks.lock(jobID)
	defer unlock()

	job, err := p.completedJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	key := domain.LetterFileKey(index)
	source, ok := job.Files[key]
	if !ok {
		return nil, fmt.Errorf("%w: letter %d of job %s", domain.ErrNotFound, index, jobID)
	}
	if model == "" {
		model = job.Request.Model
	}
	if p.models != nil && !p.models.Has(model) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedModel, model)
	}
	letter := letterOf(source)
	dest := fmt.Sprintf("%s/letter_%d_%s_edited_%d_%s.png", letters.RunDir(job.RunStamp), index, letter, p.now().UnixNano(), shortID(p.newID()))
	edited, err := p.letters.Edit(ctx, letters.EditSpec{
		SourcePath: source,
		Letter:     letter,
		Prompt:     prompt,
		Model:      model,
		Dest:       dest,
	})
	if err != nil {
		return nil, err
	}
	log := p.logger.With().Str("job_id", jobID).Int("index", index).Logger()

	job.SetFile(key, edited)
	bannerPath, bannerErr := p.writeBanner(job, job.LetterPaths())
	if bannerErr != nil {
		log.Error().Err(bannerErr).Msg("pipeline: banner rebuild failed")
	}

	updated, err := p.store.Update(ctx, jobID, func(j *domain.Job) error {
		j.SetFile(key, edited)
		if bannerErr == nil {
			j.SetFile(domain.FileBanner, bannerPath)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if source != edited && !referenced(updated, source) {
		if oldKey, err := p.files.Key(source); err == nil {
			if err := p.files.Remove(oldKey); err != nil {
				log.Warn().Err(err).Msg("pipeline: could not remove replaced letter")
			}
		}
	}
	log.Info().Str("path", edited).Msg("pipeline: letter edited")
	p.mirrorFiles(ctx, &log, updated)
	return updated, nil
}

// referenced reports whether any file entry of job still points at path.
func referenced(job *domain.Job, path string) bool {
	for _, p := range job.Files {
		if p == path {
			return true
		}
	}
	return false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// RegeneratePDF rebuilds the letter PDF of a completed job from its current
// letters.
func (p *Pipeline) RegeneratePDF(ctx context.Context, jobID string) (*domain.Job, error) {
	unlock := p.locks.lock(jobID)
	defer unlock()

	job, err := p.completedJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	docPath, err := p.writeDocument(job, job.LetterPaths())
	if err != nil {
		return nil, err
	}
	updated, err := p.store.Update(ctx, jobID, func(j *domain.Job) error {
		j.SetFile(domain.FilePDF, docPath)
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info().Str("job_id", jobID).Str("path", docPath).Msg("pipeline: pdf regenerated")
	return updated, nil
}

func (p *Pipeline) completedJob(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := p.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusCompleted {
		return nil, fmt.Errorf("%w: job %s is %s", domain.ErrJobNotCompleted, jobID, job.Status)
	}
	return job, nil
}
