package layout

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
)

// US Letter in points with a one inch margin.
const (
	PageWidth  = 612.0
	PageHeight = 792.0
	PageMargin = 72.0
)

// Placement is where an image lands on its page, in points.
type Placement struct {
	X, Y, W, H float64
}

// PlacePage scales a w x h image uniformly to fit inside the page margins
// and centres it.
func PlacePage(w, h int) Placement {
	if w <= 0 || h <= 0 {
		return Placement{}
	}
	availW := PageWidth - 2*PageMargin
	availH := PageHeight - 2*PageMargin
	scale := math.Min(availW/float64(w), availH/float64(h))
	dw := float64(w) * scale
	dh := float64(h) * scale
	return Placement{
		X: (PageWidth - dw) / 2,
		Y: (PageHeight - dh) / 2,
		W: dw,
		H: dh,
	}
}

// Flatten composites img over an opaque white backing of the same size.
// Transparent pixels become white; opaque pixels are unchanged.
func Flatten(img image.Image) *image.NRGBA {
	b := img.Bounds()
	backing := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(backing, img, image.Pt(0, 0), 1.0)
}

// WriteDocument renders one page per image in input order and writes the
// PDF to dest. Images that fail to encode are skipped; zero pages is
// ErrNothingToLayOut and leaves dest untouched.
func (e *Engine) WriteDocument(images []LetterImage, dest string) (string, error) {
	if len(images) == 0 {
		return "", ErrNothingToLayOut
	}
	pdf, sources, err := e.renderDocument(images)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("layout: ensure directory: %w", err)
		}
	}
	if err := pdf.OutputFileAndClose(dest); err != nil {
		return "", fmt.Errorf("layout: write %q: %w", dest, err)
	}

	e.logger.Info().
		Str("path", dest).
		Int("pages", len(sources)).
		Int("skipped", len(images)-len(sources)).
		Msg("layout: document written")
	return dest, nil
}

// renderDocument builds the PDF in memory and reports which sources made it
// onto a page.
func (e *Engine) renderDocument(images []LetterImage) (*gofpdf.Fpdf, []string, error) {
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(true)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	var sources []string
	for i, li := range images {
		if li.Image == nil {
			e.logger.Warn().Str("path", li.Source).Msg("layout: skipping empty image")
			continue
		}
		flat := Flatten(li.Image)
		var buf bytes.Buffer
		if err := png.Encode(&buf, flat); err != nil {
			e.logger.Warn().Err(err).Str("path", li.Source).Msg("layout: skipping image that failed to encode")
			continue
		}

		name := fmt.Sprintf("letter-%03d", i)
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		if !pdf.Ok() {
			err := pdf.Error()
			pdf.ClearError()
			e.logger.Warn().Err(err).Str("path", li.Source).Msg("layout: skipping image rejected by pdf writer")
			continue
		}

		b := flat.Bounds()
		place := PlacePage(b.Dx(), b.Dy())
		pdf.AddPage()
		pdf.ImageOptions(name, place.X, place.Y, place.W, place.H, false, opts, 0, "")
		sources = append(sources, li.Source)
	}

	if len(sources) == 0 {
		return nil, nil, ErrNothingToLayOut
	}
	if err := pdf.Error(); err != nil {
		return nil, nil, fmt.Errorf("layout: render document: %w", err)
	}
	return pdf, sources, nil
}
