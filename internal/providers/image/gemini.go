package image

import (
	"context"
	"strings"

	"letterbanner/internal/providers/genai"
)

// GeminiModel generates letters with the Gemini image model.
type GeminiModel struct {
	client *genai.Client
}

func NewGeminiModel(client *genai.Client) *GeminiModel {
	return &GeminiModel{client: client}
}

func (g *GeminiModel) ID() string {
	return g.client.ImageModel()
}

func (g *GeminiModel) Generate(ctx context.Context, req LetterPrompt) (*Asset, error) {
	return g.call(ctx, genai.ImageRequest{
		Prompt: BuildLetterPrompt(req.Letter, req.Theme, req.Palette),
		Label:  req.Letter,
	})
}

func (g *GeminiModel) Edit(ctx context.Context, req EditRequest) (*Asset, error) {
	return g.call(ctx, genai.ImageRequest{
		Prompt: BuildEditPrompt(req.Letter, req.Prompt),
		Source: req.Source,
		Label:  req.Letter,
	})
}

func (g *GeminiModel) call(ctx context.Context, req genai.ImageRequest) (*Asset, error) {
	res, err := g.client.GenerateImage(ctx, req)
	if err != nil {
		return nil, classify(err)
	}
	return &Asset{
		Data:      res.Data,
		Format:    strings.TrimSpace(res.Format),
		Width:     res.Width,
		Height:    res.Height,
		Model:     g.ID(),
		Synthetic: res.Synthetic,
	}, nil
}

var _ ImageModel = (*GeminiModel)(nil)
