package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Store.Stats(r.Context())
	if err != nil {
		a.logger(r).Error().Err(err).Msg("http: job stats failed")
		a.json(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded"})
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"active_jobs": stats.Active,
		"total_jobs":  stats.Total,
	})
}
