package image

import (
	"context"

	"letterbanner/internal/palette"
)

// LetterPrompt is the input for generating one decorative letter.
type LetterPrompt struct {
	Letter  string
	Theme   string
	Palette palette.Palette
}

// EditRequest asks a model to rework an existing letter image.
type EditRequest struct {
	Letter     string
	Source     []byte
	SourceName string
	Prompt     string
}

// Asset is an encoded image returned by a model.
type Asset struct {
	Data      []byte
	Format    string
	Width     int
	Height    int
	Model     string
	Synthetic bool
}

// ImageModel is implemented by every letter image backend.
type ImageModel interface {
	ID() string
	Generate(ctx context.Context, req LetterPrompt) (*Asset, error)
	Edit(ctx context.Context, req EditRequest) (*Asset, error)
}
