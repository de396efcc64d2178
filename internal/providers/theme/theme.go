// Package theme turns one overarching theme into a distinct theme per letter.
package theme

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"letterbanner/internal/domain"
)

const (
	staticProviderName = "static"
	geminiProviderName = "gemini"
	openAIProviderName = "openai"
)

// Variation assigns a theme to one letter.
type Variation struct {
	Letter string `json:"letter"`
	Theme  string `json:"theme"`
}

// Generator produces one variation per alphabetic character of name.
type Generator interface {
	Variations(ctx context.Context, name, theme string) ([]Variation, error)
}

// StaticGenerator derives variations locally without a model call.
type StaticGenerator struct{}

func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

var motifs = []string{
	"emblem", "pattern", "landscape", "creature", "treasure", "ornament",
	"silhouette", "garden", "lantern", "voyage", "crest", "tapestry",
}

func (s *StaticGenerator) Variations(ctx context.Context, name, theme string) ([]Variation, error) {
	letters := domain.LettersOf(name)
	if len(letters) == 0 {
		return nil, fmt.Errorf("%w: name has no letters", domain.ErrInvalidRequest)
	}
	out := make([]Variation, len(letters))
	for i, l := range letters {
		out[i] = Variation{Letter: l, Theme: staticTheme(l, theme, i)}
	}
	return out, nil
}

// staticTheme picks a motif phrase for letter that does not start with it.
func staticTheme(letter, theme string, index int) string {
	base := cases.Lower(language.English).String(strings.TrimSpace(theme))
	if base == "" {
		base = "whimsy"
	}
	for k := 0; k < len(motifs); k++ {
		motif := motifs[(index+k)%len(motifs)]
		for _, candidate := range []string{base + " " + motif, motif + " of " + base} {
			if !startsWith(candidate, letter) {
				return candidate
			}
		}
	}
	return "the " + base
}

func startsWith(s, letter string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(s)), strings.ToUpper(letter))
}

// Reconcile aligns model output with letters: each letter takes the next
// unused variation for it, and gaps are filled by the static generator.
func Reconcile(letters []string, variations []Variation, theme string) []Variation {
	pending := map[string][]string{}
	for _, v := range variations {
		l := strings.ToUpper(strings.TrimSpace(v.Letter))
		t := strings.TrimSpace(v.Theme)
		if l == "" || t == "" {
			continue
		}
		pending[l] = append(pending[l], t)
	}
	out := make([]Variation, len(letters))
	for i, l := range letters {
		if queue := pending[l]; len(queue) > 0 {
			out[i] = Variation{Letter: l, Theme: queue[0]}
			pending[l] = queue[1:]
			continue
		}
		out[i] = Variation{Letter: l, Theme: staticTheme(l, theme, i)}
	}
	return out
}

var _ Generator = (*StaticGenerator)(nil)
