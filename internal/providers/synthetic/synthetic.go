// Package synthetic renders deterministic stand-in images used when a
// provider has no API key configured.
package synthetic

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultSize is the edge of a synthetic tile in pixels.
const DefaultSize = 1024

// Seed hashes parts into a short hex string.
func Seed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(fmt.Sprintf("%v", part)))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

// LetterTile draws the first rune of label on a transparent square, colored
// from seed, and returns it PNG encoded.
func LetterTile(label, seed string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	r, _ := utf8.DecodeRuneInString(strings.ToUpper(strings.TrimSpace(label)))
	if r == utf8.RuneError {
		r = '?'
	}

	face := basicfont.Face7x13
	glyph := image.NewNRGBA(image.Rect(0, 0, face.Width+2, face.Ascent+face.Descent+1))
	d := font.Drawer{
		Dst:  glyph,
		Src:  image.NewUniform(colorFromSeed(seed, 0)),
		Face: face,
		Dot:  fixed.P(1, face.Ascent),
	}
	d.DrawString(string(r))

	tile := imaging.Resize(glyph, size, size, imaging.NearestNeighbor)
	return encodePNG(tile)
}

// Restyle returns a deterministic variation of src, standing in for an
// image edit.
func Restyle(src []byte, seed string) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("synthetic: decode source: %w", err)
	}
	tint := colorFromSeed(seed, 1)
	out := imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		if c.A == 0 {
			return c
		}
		return color.NRGBA{
			R: uint8((uint16(c.R) + uint16(tint.R)) / 2),
			G: uint8((uint16(c.G) + uint16(tint.G)) / 2),
			B: uint8((uint16(c.B) + uint16(tint.B)) / 2),
			A: c.A,
		}
	})
	return encodePNG(out)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("synthetic: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func colorFromSeed(seed string, shift int) color.NRGBA {
	if len(seed) < 6 {
		seed = "3a5f7c" + seed
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.NRGBA{
		R: parseHexByte(segment[0:2]),
		G: parseHexByte(segment[2:4]),
		B: parseHexByte(segment[4:6]),
		A: 255,
	}
}

func parseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}
