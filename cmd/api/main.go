package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"letterbanner/internal/app"
	"letterbanner/internal/http/handlers"
	httpapi "letterbanner/internal/http/httpapi"
	"letterbanner/internal/infra"
)

func main() {
	// Load .env when present
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, cancelRuntime := context.WithCancel(context.Background())
	defer cancelRuntime()

	rt, err := app.New(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build runtime")
	}
	defer rt.Close()

	if err := rt.Sweeper.Start(ctx, cfg.CleanupInterval); err != nil {
		logger.Fatal().Err(err).Msg("failed to start sweeper")
	}

	handler := &handlers.App{
		Banners:      rt.Pipeline,
		Store:        rt.Store,
		Models:       rt.Models,
		Themes:       rt.Themes,
		DefaultTheme: cfg.ThemeProvider,
		Logger:       &logger,
	}
	router := httpapi.NewRouter(handler, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("output_dir", cfg.OutputDir).
			Str("job_store", cfg.JobStore).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	rt.Sweeper.Stop()
	if err := rt.Pipeline.Wait(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("jobs still running at shutdown")
	}
	logger.Info().Msg("server stopped")
}
