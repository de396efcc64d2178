// Package letters generates and edits single decorative letter images.
package letters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"letterbanner/internal/domain"
	"letterbanner/internal/infra"
	"letterbanner/internal/palette"
	imagemodel "letterbanner/internal/providers/image"
	"letterbanner/internal/retry"
	"letterbanner/internal/storage"
)

// Spec describes one letter to generate.
type Spec struct {
	// Index is the letter's position in the request. It keeps repeated
	// letters with the same theme in separate files.
	Index    int
	Letter   string
	Theme    string
	Palette  palette.Palette
	Model    string
	RunStamp string
}

// EditSpec describes an edit of an existing letter image. Dest is the
// storage key of the edited file.
type EditSpec struct {
	SourcePath string
	Letter     string
	Prompt     string
	Model      string
	Dest       string
}

type Service struct {
	registry *imagemodel.Registry
	files    *storage.FileStore
	policy   retry.Policy
	logger   *infra.Logger
}

func NewService(registry *imagemodel.Registry, files *storage.FileStore, policy retry.Policy, logger *infra.Logger) *Service {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Service{registry: registry, files: files, policy: policy, logger: logger}
}

// RunDir is the storage directory holding every artifact of one run.
func RunDir(stamp string) string {
	return "letter_banner_" + stamp
}

// LetterKey is the storage key of the index-th generated letter.
func LetterKey(stamp string, index int, letter, theme string) string {
	return fmt.Sprintf("%s/letter_%d_%s_%s_%s.png", RunDir(stamp), index, letter, slug(theme), stamp)
}

func slug(theme string) string {
	s := strings.ReplaceAll(strings.TrimSpace(theme), " ", "_")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.NewReplacer("/", "-", "\\", "-").Replace(s)
	if s == "" {
		return "letter"
	}
	return s
}

// Generate renders one letter and stores it, returning the absolute path.
// An unknown model fails before any provider call.
func (s *Service) Generate(ctx context.Context, spec Spec) (string, error) {
	model, err := s.registry.Get(spec.Model)
	if err != nil {
		return "", err
	}
	log := s.logger.With().Str("letter", spec.Letter).Str("model", model.ID()).Logger()
	prompt := imagemodel.LetterPrompt{Letter: spec.Letter, Theme: spec.Theme, Palette: spec.Palette}

	var asset *imagemodel.Asset
	err = s.policyFor(&log).Do(ctx, func(ctx context.Context, attempt int) error {
		log.Debug().Int("attempt", attempt).Str("theme", spec.Theme).Msg("letters: generating")
		a, genErr := model.Generate(ctx, prompt)
		if genErr != nil {
			return genErr
		}
		asset = a
		return nil
	})
	if err != nil {
		return "", providerFailure(spec.Letter, err)
	}

	path, err := s.files.Write(ctx, LetterKey(spec.RunStamp, spec.Index, spec.Letter, spec.Theme), asset.Data)
	if err != nil {
		return "", err
	}
	log.Info().Str("path", path).Bool("synthetic", asset.Synthetic).Msg("letters: letter saved")
	return path, nil
}

// Edit reworks the image at SourcePath and stores the result at Dest.
func (s *Service) Edit(ctx context.Context, spec EditSpec) (string, error) {
	if strings.TrimSpace(spec.Prompt) == "" {
		return "", fmt.Errorf("%w: edit prompt is required", domain.ErrInvalidRequest)
	}
	model, err := s.registry.Get(spec.Model)
	if err != nil {
		return "", err
	}
	source, err := os.ReadFile(spec.SourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: source image %s", domain.ErrNotFound, filepath.Base(spec.SourcePath))
		}
		return "", fmt.Errorf("letters: read source: %w", err)
	}
	log := s.logger.With().Str("letter", spec.Letter).Str("model", model.ID()).Logger()
	req := imagemodel.EditRequest{
		Letter:     spec.Letter,
		Source:     source,
		SourceName: filepath.Base(spec.SourcePath),
		Prompt:     spec.Prompt,
	}

	var asset *imagemodel.Asset
	err = s.policyFor(&log).Do(ctx, func(ctx context.Context, attempt int) error {
		log.Debug().Int("attempt", attempt).Msg("letters: editing")
		a, editErr := model.Edit(ctx, req)
		if editErr != nil {
			return editErr
		}
		asset = a
		return nil
	})
	if err != nil {
		return "", providerFailure(spec.Letter, err)
	}
	path, err := s.files.Write(ctx, spec.Dest, asset.Data)
	if err != nil {
		return "", err
	}
	log.Info().Str("path", path).Msg("letters: letter edited")
	return path, nil
}

func (s *Service) policyFor(log *zerolog.Logger) retry.Policy {
	p := s.policy
	next := p.OnRetry
	p.OnRetry = func(attempt int, err error) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("delay", p.Delay).Msg("letters: retrying")
		if next != nil {
			next(attempt, err)
		}
	}
	return p
}

func providerFailure(letter string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: letter %s: %w", domain.ErrProviderFailure, letter, err)
}
