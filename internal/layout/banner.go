package layout

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// CompositeBanner places images on a white print canvas in input order.
// columns <= 0 selects the default for len(images).
func CompositeBanner(images []image.Image, columns int) (*image.NRGBA, GridSpec, error) {
	grid, err := ComputeGrid(len(images), columns, CanvasWidth, CanvasHeight, CanvasMargin)
	if err != nil {
		return nil, GridSpec{}, err
	}

	canvas := imaging.New(CanvasWidth, CanvasHeight, color.White)
	for i, img := range images {
		if img == nil {
			return nil, GridSpec{}, fmt.Errorf("layout: image %d is nil", i)
		}
		tile := imaging.Resize(img, grid.Cell, grid.Cell, imaging.Lanczos)
		canvas = imaging.Overlay(canvas, tile, grid.Origin(i), 1.0)
	}
	return canvas, grid, nil
}

// WriteBanner composites images and writes a 300 dpi PNG at dest, creating
// the parent directory when needed. Nothing is written on failure.
func (e *Engine) WriteBanner(images []LetterImage, dest string, columns int) (string, error) {
	if len(images) == 0 {
		return "", ErrNothingToLayOut
	}
	rasters := make([]image.Image, len(images))
	for i, li := range images {
		rasters[i] = li.Image
	}
	canvas, grid, err := CompositeBanner(rasters, columns)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := EncodePNG(&buf, canvas, PrintDPI); err != nil {
		return "", err
	}
	if err := writeFile(dest, buf.Bytes()); err != nil {
		return "", err
	}

	e.logger.Info().
		Str("path", dest).
		Int("images", len(images)).
		Int("columns", grid.Columns).
		Int("rows", grid.Rows).
		Int("cell", grid.Cell).
		Msg("layout: banner written")
	return dest, nil
}

// EncodePNG encodes img as PNG and tags it with a pHYs chunk for dpi.
func EncodePNG(w io.Writer, img image.Image, dpi int) error {
	var raw bytes.Buffer
	if err := png.Encode(&raw, img); err != nil {
		return fmt.Errorf("layout: encode png: %w", err)
	}
	tagged, err := withPhysChunk(raw.Bytes(), dpi)
	if err != nil {
		return err
	}
	_, err = w.Write(tagged)
	return err
}

func writeFile(dest string, data []byte) error {
	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("layout: ensure directory: %w", err)
		}
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("layout: write %q: %w", dest, err)
	}
	return nil
}
