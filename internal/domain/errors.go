package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrUnsupportedModel   = errors.New("unsupported model")
	ErrProviderFailure    = errors.New("provider failure")
	ErrNoLetters          = errors.New("no letters were generated")
	ErrJobNotCompleted    = errors.New("job not completed")
	ErrDuplicateOperation = errors.New("duplicate operation")
)
