// Package app assembles the banner service from configuration. Both the HTTP
// server and the CLI build their collaborators through it.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"letterbanner/internal/adapter/repo"
	"letterbanner/internal/banner"
	"letterbanner/internal/domain"
	"letterbanner/internal/infra"
	"letterbanner/internal/infra/credentials"
	"letterbanner/internal/layout"
	"letterbanner/internal/letters"
	"letterbanner/internal/providers/genai"
	imagemodel "letterbanner/internal/providers/image"
	"letterbanner/internal/providers/openai"
	"letterbanner/internal/providers/theme"
	"letterbanner/internal/retry"
	"letterbanner/internal/storage"
)

// Runtime holds the wired service graph.
type Runtime struct {
	Config   *infra.Config
	Logger   *infra.Logger
	Files    *storage.FileStore
	Store    domain.JobStore
	Models   *imagemodel.Registry
	Letters  *letters.Service
	Layout   *layout.Engine
	Pipeline *banner.Pipeline
	Themes   map[string]theme.Generator
	Sweeper  *banner.Sweeper

	closers []func()
}

// New builds a Runtime. Close releases its connections.
func New(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			rt.Close()
		}
	}()

	files, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	rt.Files = files

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = infra.NewDBPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
	}

	if err := rt.buildStore(ctx, pool); err != nil {
		return nil, err
	}

	geminiKey, openAIKey := cfg.GeminiAPIKey, cfg.OpenAIAPIKey
	if pool != nil && (geminiKey == "" || openAIKey == "") {
		geminiKey, openAIKey = rt.storedKeys(ctx, pool, geminiKey, openAIKey)
	}

	geminiClient, err := genai.NewClient(genai.Options{
		APIKey:     geminiKey,
		BaseURL:    cfg.GeminiBaseURL,
		ImageModel: cfg.GeminiImageModel,
		TextModel:  cfg.GeminiTextModel,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	openAIClient, err := openai.NewClient(openai.Options{
		APIKey:       openAIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		Organization: cfg.OpenAIOrg,
		ImageModel:   cfg.OpenAIImageModel,
		TextModel:    cfg.OpenAITextModel,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	if !geminiClient.HasKey() && !openAIClient.HasKey() {
		logger.Warn().Msg("app: no provider api keys configured, letters will be synthetic")
	}

	rt.Models = imagemodel.NewRegistry(imagemodel.NewGeminiModel(geminiClient), imagemodel.NewOpenAIModel(openAIClient))
	if err := rt.Models.SetDefault(cfg.DefaultImageModel); err != nil {
		return nil, fmt.Errorf("DEFAULT_IMAGE_MODEL: %w", err)
	}

	policy := retry.Policy{MaxAttempts: cfg.RetryMaxAttempts, Delay: cfg.RetryDelay}
	rt.Letters = letters.NewService(rt.Models, files, policy, logger)
	rt.Layout = layout.NewEngine(logger)

	var mirror banner.Mirror
	if cfg.S3Bucket != "" {
		m, err := storage.NewS3Mirror(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		mirror = m
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("app: mirroring artifacts to s3")
	}

	rt.Pipeline, err = banner.NewPipeline(banner.Options{
		Store:   rt.Store,
		Letters: rt.Letters,
		Models:  rt.Models,
		Layout:  rt.Layout,
		Files:   files,
		Mirror:  mirror,
		Workers: cfg.GenerationWorkers,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	rt.Themes = rt.buildThemes(geminiClient, openAIClient)
	rt.Sweeper = banner.NewSweeper(rt.Store, files, cfg.MaxJobAge, logger)

	ok = true
	return rt, nil
}

func (rt *Runtime) buildStore(ctx context.Context, pool *pgxpool.Pool) error {
	cfg := rt.Config
	switch cfg.JobStore {
	case infra.JobStorePostgres:
		pg := repo.NewJobRepository(infra.NewSQLRunner(pool, *rt.Logger))
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		rt.Store = pg
	case infra.JobStoreRedis:
		client, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		rt.closers = append(rt.closers, func() { _ = client.Close() })
		rt.Store = repo.NewRedisJobStore(client, "", cfg.MaxJobAge+cfg.CleanupInterval)
	default:
		rt.Store = repo.NewMemoryJobStore()
	}
	rt.Logger.Info().Str("job_store", cfg.JobStore).Msg("app: job store ready")
	return nil
}

// storedKeys fills missing provider keys from the integration_tokens table.
func (rt *Runtime) storedKeys(ctx context.Context, pool *pgxpool.Pool, gemini, openAI string) (string, string) {
	store := credentials.NewStore(infra.NewSQLRunner(pool, *rt.Logger))
	if err := store.EnsureSchema(ctx); err != nil {
		rt.Logger.Warn().Err(err).Msg("app: integration token table unavailable")
		return gemini, openAI
	}
	if gemini == "" {
		if key, err := store.GeminiAPIKey(ctx); err != nil {
			rt.Logger.Warn().Err(err).Msg("app: load gemini key")
		} else {
			gemini = key
		}
	}
	if openAI == "" {
		if key, err := store.OpenAIAPIKey(ctx); err != nil {
			rt.Logger.Warn().Err(err).Msg("app: load openai key")
		} else {
			openAI = key
		}
	}
	return gemini, openAI
}

func (rt *Runtime) buildThemes(gemini *genai.Client, oai *openai.Client) map[string]theme.Generator {
	static := theme.NewStaticGenerator()
	onFallback := func(provider string) func(string, error) {
		return func(reason string, err error) {
			rt.Logger.Warn().Err(err).Str("provider", provider).Str("reason", reason).Msg("app: theme generation fell back to static")
		}
	}
	themes := map[string]theme.Generator{"static": static}
	if g, err := theme.NewGeminiGenerator(theme.GeminiOptions{Client: gemini, Fallback: static, OnFallback: onFallback("gemini")}); err == nil {
		themes["gemini"] = g
	}
	if g, err := theme.NewOpenAIGenerator(theme.OpenAIOptions{Client: oai, Fallback: static, OnFallback: onFallback("openai")}); err == nil {
		themes["openai"] = g
	}
	return themes
}

// Theme returns the configured default theme generator.
func (rt *Runtime) Theme() theme.Generator {
	if g, ok := rt.Themes[rt.Config.ThemeProvider]; ok {
		return g
	}
	return rt.Themes["static"]
}

// Close releases connections in reverse order of acquisition.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
