package theme

import (
	"context"
	"errors"
	"fmt"

	"letterbanner/internal/domain"
	"letterbanner/internal/providers/genai"
)

type GeminiOptions struct {
	Client     *genai.Client
	Fallback   Generator
	OnFallback func(reason string, err error)
}

// GeminiGenerator asks a Gemini text model for variations.
type GeminiGenerator struct {
	client     *genai.Client
	fallback   Generator
	onFallback func(reason string, err error)
}

func NewGeminiGenerator(opts GeminiOptions) (*GeminiGenerator, error) {
	if opts.Client == nil {
		return nil, errors.New("gemini client is required")
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = NewStaticGenerator()
	}
	return &GeminiGenerator{client: opts.Client, fallback: fallback, onFallback: opts.OnFallback}, nil
}

func (g *GeminiGenerator) Variations(ctx context.Context, name, theme string) ([]Variation, error) {
	letters := domain.LettersOf(name)
	if len(letters) == 0 {
		return nil, fmt.Errorf("%w: name has no letters", domain.ErrInvalidRequest)
	}
	if !g.client.HasKey() {
		return g.useFallback(ctx, name, theme, "missing_api_key", nil)
	}
	text, err := g.client.GenerateText(ctx, BuildPrompt(letters, theme), false)
	if err != nil {
		return g.useFallback(ctx, name, theme, "http_request", err)
	}
	parsed, err := parseVariations(text)
	if err != nil {
		return g.useFallback(ctx, name, theme, "parse_payload", err)
	}
	if len(parsed) == 0 {
		return g.useFallback(ctx, name, theme, "empty_items", errors.New("no variations"))
	}
	return Reconcile(letters, parsed, theme), nil
}

func (g *GeminiGenerator) useFallback(ctx context.Context, name, theme, reason string, err error) ([]Variation, error) {
	if g.onFallback != nil {
		g.onFallback(reason, err)
	}
	return g.fallback.Variations(ctx, name, theme)
}

var _ Generator = (*GeminiGenerator)(nil)
