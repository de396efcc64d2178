package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"letterbanner/internal/http/handlers"
	"letterbanner/internal/middleware"
)

type Options struct {
	Logger          zerolog.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/health", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/docs", app.OpenAPIDocs)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/palettes", app.Palettes)
		r.Get("/models", app.ModelsList)
		r.Get("/status/{job_id}", app.JobStatus)
		r.Get("/download/{job_id}/all", app.DownloadAll)
		r.Get("/download/{job_id}/{file_type}", app.Download)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
			r.Post("/theme-variations", app.ThemeVariations)
			r.Post("/generate-banner", app.GenerateBanner)
			r.Post("/jobs/{job_id}/letters/{index}/edit", app.EditLetter)
			r.Post("/jobs/{job_id}/regenerate-pdf", app.RegeneratePDF)
		})
	})

	return r
}
