package image

import (
	"bytes"
	"context"
	stdimage "image"

	"letterbanner/internal/providers/openai"
	"letterbanner/internal/providers/synthetic"
)

// OpenAIModel generates letters with gpt-image-1 on a transparent background.
type OpenAIModel struct {
	client *openai.Client
}

func NewOpenAIModel(client *openai.Client) *OpenAIModel {
	return &OpenAIModel{client: client}
}

func (o *OpenAIModel) ID() string {
	return o.client.ImageModel()
}

func (o *OpenAIModel) Generate(ctx context.Context, req LetterPrompt) (*Asset, error) {
	prompt := BuildLetterPrompt(req.Letter, req.Theme, req.Palette)
	if !o.client.HasKey() {
		return o.synthetic(req.Letter, prompt, nil)
	}
	data, err := o.client.GenerateImage(ctx, openai.ImageRequest{Prompt: prompt})
	if err != nil {
		return nil, classify(err)
	}
	return o.asset(data), nil
}

func (o *OpenAIModel) Edit(ctx context.Context, req EditRequest) (*Asset, error) {
	prompt := BuildEditPrompt(req.Letter, req.Prompt)
	if !o.client.HasKey() {
		return o.synthetic(req.Letter, prompt, req.Source)
	}
	data, err := o.client.GenerateImage(ctx, openai.ImageRequest{
		Prompt:     prompt,
		Source:     req.Source,
		SourceName: req.SourceName,
	})
	if err != nil {
		return nil, classify(err)
	}
	return o.asset(data), nil
}

func (o *OpenAIModel) synthetic(letter, prompt string, source []byte) (*Asset, error) {
	seed := synthetic.Seed(o.ID(), letter, prompt)
	var (
		data []byte
		err  error
	)
	if len(source) > 0 {
		data, err = synthetic.Restyle(source, seed)
	} else {
		data, err = synthetic.LetterTile(letter, seed, synthetic.DefaultSize)
	}
	if err != nil {
		return nil, err
	}
	a := o.asset(data)
	a.Synthetic = true
	return a, nil
}

func (o *OpenAIModel) asset(data []byte) *Asset {
	a := &Asset{Data: data, Format: "image/png", Model: o.ID()}
	if cfg, _, err := stdimage.DecodeConfig(bytes.NewReader(data)); err == nil {
		a.Width, a.Height = cfg.Width, cfg.Height
	}
	return a
}

var _ ImageModel = (*OpenAIModel)(nil)
