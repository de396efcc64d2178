package theme

import (
	"context"
	"errors"
	"fmt"

	"letterbanner/internal/domain"
	"letterbanner/internal/providers/openai"
)

type OpenAIOptions struct {
	Client     *openai.Client
	Fallback   Generator
	OnFallback func(reason string, err error)
}

// OpenAIGenerator asks a chat model for variations in JSON object mode.
type OpenAIGenerator struct {
	client     *openai.Client
	fallback   Generator
	onFallback func(reason string, err error)
}

func NewOpenAIGenerator(opts OpenAIOptions) (*OpenAIGenerator, error) {
	if opts.Client == nil {
		return nil, errors.New("openai client is required")
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = NewStaticGenerator()
	}
	return &OpenAIGenerator{client: opts.Client, fallback: fallback, onFallback: opts.OnFallback}, nil
}

func (o *OpenAIGenerator) Variations(ctx context.Context, name, theme string) ([]Variation, error) {
	letters := domain.LettersOf(name)
	if len(letters) == 0 {
		return nil, fmt.Errorf("%w: name has no letters", domain.ErrInvalidRequest)
	}
	if !o.client.HasKey() {
		return o.useFallback(ctx, name, theme, "missing_api_key", nil)
	}
	text, err := o.client.Chat(ctx, []openai.Message{
		{Role: "system", Content: systemMessage},
		{Role: "user", Content: BuildPrompt(letters, theme)},
	}, true)
	if err != nil {
		return o.useFallback(ctx, name, theme, "http_request", err)
	}
	parsed, err := parseVariations(text)
	if err != nil {
		return o.useFallback(ctx, name, theme, "parse_payload", err)
	}
	if len(parsed) == 0 {
		return o.useFallback(ctx, name, theme, "empty_items", errors.New("no variations"))
	}
	return Reconcile(letters, parsed, theme), nil
}

func (o *OpenAIGenerator) useFallback(ctx context.Context, name, theme, reason string, err error) ([]Variation, error) {
	if o.onFallback != nil {
		o.onFallback(reason, err)
	}
	return o.fallback.Variations(ctx, name, theme)
}

var _ Generator = (*OpenAIGenerator)(nil)
