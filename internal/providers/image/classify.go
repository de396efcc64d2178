package image

import (
	"context"
	"errors"

	"letterbanner/internal/providers/genai"
	"letterbanner/internal/providers/openai"
	"letterbanner/internal/retry"
)

// classify marks transient provider failures as retryable. Cancellation and
// client errors other than moderation blocks pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var gErr *genai.APIError
	if errors.As(err, &gErr) {
		if gErr.Temporary() {
			return retry.Retryable(err)
		}
		return err
	}
	var oErr *openai.APIError
	if errors.As(err, &oErr) {
		if oErr.Temporary() {
			return retry.Retryable(err)
		}
		return err
	}
	// Empty responses and transport failures are worth another attempt.
	return retry.Retryable(err)
}
