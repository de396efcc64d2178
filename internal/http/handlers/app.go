package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"letterbanner/internal/domain"
	"letterbanner/internal/infra"
	imagemodel "letterbanner/internal/providers/image"
	"letterbanner/internal/providers/theme"
)

// BannerService is the part of the banner pipeline the handlers drive.
type BannerService interface {
	Submit(ctx context.Context, req domain.BannerRequest) (*domain.Job, error)
	EditLetter(ctx context.Context, jobID string, index int, prompt, model string) (*domain.Job, error)
	RegeneratePDF(ctx context.Context, jobID string) (*domain.Job, error)
}

type App struct {
	Banners BannerService
	Store   domain.JobStore
	Models  *imagemodel.Registry

	// Themes maps a provider name (gemini, openai, static) to its generator.
	Themes       map[string]theme.Generator
	DefaultTheme string
	Logger       *infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]errorBody{"error": {Code: errCode, Message: message}})
}

// fail maps domain errors onto HTTP responses.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedModel):
		a.error(w, http.StatusBadRequest, "unsupported_model", err.Error())
	case errors.Is(err, domain.ErrInvalidRequest):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrJobNotCompleted):
		a.error(w, http.StatusBadRequest, "bad_request", "Job not completed yet")
	case errors.Is(err, domain.ErrDuplicateOperation):
		a.error(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrProviderFailure):
		a.logger(r).Error().Err(err).Msg("http: provider failure")
		a.error(w, http.StatusBadGateway, "internal", err.Error())
	default:
		a.logger(r).Error().Err(err).Msg("http: request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// logger prefers the request scoped logger installed by middleware.Logger.
func (a *App) logger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	if a.Logger != nil {
		return a.Logger
	}
	discard := zerolog.New(io.Discard)
	return &discard
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	return dec.Decode(v)
}
