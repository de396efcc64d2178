package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"letterbanner/internal/domain"
	"letterbanner/internal/palette"
	"letterbanner/internal/providers/theme"
)

func (a *App) Palettes(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"palettes": palette.All()})
}

func (a *App) ModelsList(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"models":  a.Models.IDs(),
		"default": a.Models.Default(),
	})
}

type themeVariationsRequest struct {
	Name  string `json:"name"`
	Theme string `json:"theme"`
	Model string `json:"model"`
}

func (a *App) ThemeVariations(w http.ResponseWriter, r *http.Request) {
	var req themeVariationsRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Theme = strings.TrimSpace(req.Theme)
	if req.Name == "" || req.Theme == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "name and theme are required")
		return
	}
	if n := len(domain.LettersOf(req.Name)); n == 0 || n > domain.MaxLetters {
		a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("name must contain 1-%d letters", domain.MaxLetters))
		return
	}
	gen, err := a.themeGenerator(req.Model)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	variations, err := gen.Variations(r.Context(), req.Name, req.Theme)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"name": req.Name, "theme": req.Theme, "variations": variations})
}

// themeGenerator picks the text provider matching model: gpt* models use
// openai, gemini* models use gemini, a bare provider name selects itself.
func (a *App) themeGenerator(model string) (theme.Generator, error) {
	model = strings.ToLower(strings.TrimSpace(model))
	provider := a.DefaultTheme
	switch {
	case model == "":
	case strings.HasPrefix(model, "gpt"):
		provider = "openai"
	case strings.HasPrefix(model, "gemini"):
		provider = "gemini"
	default:
		provider = model
	}
	if gen, ok := a.Themes[provider]; ok {
		return gen, nil
	}
	if gen, ok := a.Themes["static"]; ok && model == "" {
		return gen, nil
	}
	return nil, fmt.Errorf("%w: no theme provider for %q", domain.ErrUnsupportedModel, model)
}
