package layout

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"

	"letterbanner/internal/infra"
)

// LetterImage is a decoded letter raster together with the file it came from.
// The engine never mutates Image; resizing and flattening produce copies.
type LetterImage struct {
	Source string
	Image  image.Image
}

// Engine turns letter images into print artifacts. It holds no per-call
// state, so a single Engine may be shared by concurrent callers as long as
// each call writes to its own destination.
type Engine struct {
	logger *infra.Logger
}

// NewEngine constructs an Engine. A nil logger discards output.
func NewEngine(logger *infra.Logger) *Engine {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Engine{logger: logger}
}

// Load decodes each path in order. Missing or undecodable files are skipped
// with a warning; the returned slice keeps the order of the readable ones.
func (e *Engine) Load(paths []string) []LetterImage {
	images := make([]LetterImage, 0, len(paths))
	for _, path := range paths {
		img, err := LoadImage(path)
		if err != nil {
			e.logger.Warn().Err(err).Str("path", path).Msg("layout: skipping unreadable image")
			continue
		}
		images = append(images, LetterImage{Source: path, Image: img})
	}
	return images
}

// LoadImage decodes a PNG, JPEG, GIF or WebP file.
func LoadImage(path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("layout: image %q does not exist: %w", path, err)
		}
		return nil, fmt.Errorf("layout: stat %q: %w", path, err)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("layout: decode %q: %w", path, err)
	}
	return img, nil
}

// BannerFromFiles loads paths and writes the banner PNG to dest.
func (e *Engine) BannerFromFiles(paths []string, dest string, columns int) (string, error) {
	if len(paths) == 0 {
		return "", ErrNothingToLayOut
	}
	return e.WriteBanner(e.Load(paths), dest, columns)
}

// DocumentFromFiles loads paths and writes the one-letter-per-page PDF to dest.
func (e *Engine) DocumentFromFiles(paths []string, dest string) (string, error) {
	if len(paths) == 0 {
		return "", ErrNothingToLayOut
	}
	return e.WriteDocument(e.Load(paths), dest)
}
