package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxLetters caps the number of letters in one banner.
const MaxLetters = 20

// DefaultPalette is used when a request names none.
const DefaultPalette = "earthy_vintage"

// CustomPalette selects the colors supplied in BannerRequest.CustomColors.
const CustomPalette = "custom"

// LetterSpec pairs one letter with the object it should be shaped like.
type LetterSpec struct {
	Letter string `json:"letter"`
	Object string `json:"object"`
}

// BannerRequest is a submitted banner generation.
type BannerRequest struct {
	Name         string       `json:"name"`
	Letters      []LetterSpec `json:"letters"`
	ColorPalette string       `json:"color_palette"`
	CustomColors []string     `json:"custom_colors,omitempty"`
	Model        string       `json:"model,omitempty"`
}

// Normalize trims and upper-cases the request in place and checks the rules
// that do not depend on registries. Errors wrap ErrInvalidRequest.
func (r *BannerRequest) Normalize() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidRequest)
	}
	if len(r.Letters) == 0 {
		return fmt.Errorf("%w: at least one letter is required", ErrInvalidRequest)
	}
	if len(r.Letters) > MaxLetters {
		return fmt.Errorf("%w: maximum %d letters allowed", ErrInvalidRequest, MaxLetters)
	}
	for i := range r.Letters {
		l := &r.Letters[i]
		letter := strings.TrimSpace(l.Letter)
		ch, size := utf8.DecodeRuneInString(letter)
		if size == 0 || size != len(letter) || !unicode.IsLetter(ch) {
			return fmt.Errorf("%w: letter %d must be a single alphabetic character", ErrInvalidRequest, i+1)
		}
		l.Letter = strings.ToUpper(letter)
		l.Object = strings.TrimSpace(l.Object)
		if l.Object == "" {
			return fmt.Errorf("%w: object description for letter %q cannot be empty", ErrInvalidRequest, l.Letter)
		}
	}

	r.ColorPalette = strings.TrimSpace(r.ColorPalette)
	if r.ColorPalette == "" {
		r.ColorPalette = DefaultPalette
	}
	var colors []string
	for _, c := range r.CustomColors {
		if c = strings.TrimSpace(c); c != "" {
			colors = append(colors, c)
		}
	}
	r.CustomColors = colors
	r.Model = strings.TrimSpace(r.Model)
	return nil
}

// LettersOf returns the upper-cased alphabetic characters of name in order.
func LettersOf(name string) []string {
	var out []string
	for _, ch := range name {
		if unicode.IsLetter(ch) {
			out = append(out, strings.ToUpper(string(ch)))
		}
	}
	return out
}
