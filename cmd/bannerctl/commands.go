package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"letterbanner/internal/app"
	"letterbanner/internal/banner"
	"letterbanner/internal/domain"
	"letterbanner/internal/infra"
	"letterbanner/internal/infra/credentials"
	"letterbanner/internal/layout"
	"letterbanner/internal/palette"
	"letterbanner/internal/providers/theme"
)

type cli struct {
	out    io.Writer
	errOut io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}
	root := &cobra.Command{
		Use:          "bannerctl",
		Short:        "Generate and compose letter banners",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.AddCommand(c.composeCmd())
	root.AddCommand(c.generateCmd())
	root.AddCommand(c.themesCmd())
	root.AddCommand(c.palettesCmd())
	root.AddCommand(c.keysCmd())
	return root
}

func (c *cli) config() (*infra.Config, *infra.Logger, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := infra.NewLoggerTo(c.errOut, cfg.AppEnv, cfg.LogLevel)
	return cfg, &logger, nil
}

func (c *cli) composeCmd() *cobra.Command {
	var (
		outDir  string
		name    string
		columns int
		noPDF   bool
	)
	cmd := &cobra.Command{
		Use:   "compose <image|dir>...",
		Short: "Lay out existing letter images as a banner page and PDF",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := collectImages(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no images found in %s", strings.Join(args, ", "))
			}
			logger := infra.NewLoggerTo(c.errOut, "production", "warn")
			engine := layout.NewEngine(&logger)

			stamp := time.Now().Format("20060102_150405")
			bannerPath, err := engine.BannerFromFiles(paths, filepath.Join(outDir, banner.BannerKey(stamp)), columns)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "banner: %s\n", bannerPath)
			if noPDF {
				return nil
			}
			pdfPath, err := engine.DocumentFromFiles(paths, filepath.Join(outDir, banner.DocumentKey(stamp, name)))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "pdf: %s\n", pdfPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&name, "name", "banner", "name used in the PDF filename")
	cmd.Flags().IntVar(&columns, "columns", 0, "grid columns (0 derives from the image count)")
	cmd.Flags().BoolVar(&noPDF, "no-pdf", false, "skip the PDF compilation")
	return cmd
}

// collectImages expands directories to their image files in name order.
func collectImages(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".png", ".jpg", ".jpeg", ".gif", ".webp":
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}

func (c *cli) generateCmd() *cobra.Command {
	var (
		name    string
		objects []string
		pal     string
		colors  []string
		model   string
		themed  string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run a full banner job in-process",
		Example: `  bannerctl generate --name Jo --letter J=jellyfish --letter O=octopus
  bannerctl generate --name Maya --theme "ocean life"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.config()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			specs, err := parseLetterSpecs(objects)
			if err != nil {
				return err
			}
			if len(specs) == 0 {
				if themed == "" {
					return fmt.Errorf("either --letter or --theme is required")
				}
				variations, err := rt.Theme().Variations(ctx, name, themed)
				if err != nil {
					return err
				}
				for _, v := range theme.Reconcile(domain.LettersOf(name), variations, themed) {
					specs = append(specs, domain.LetterSpec{Letter: v.Letter, Object: v.Theme})
				}
			}

			job, err := rt.Pipeline.Submit(ctx, domain.BannerRequest{
				Name:         name,
				Letters:      specs,
				ColorPalette: pal,
				CustomColors: colors,
				Model:        model,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "job: %s\n", job.ID)
			if err := rt.Pipeline.Wait(ctx); err != nil {
				return err
			}
			job, err = rt.Store.Get(ctx, job.ID)
			if err != nil {
				return err
			}
			return c.printJob(job)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "banner name")
	cmd.Flags().StringArrayVar(&objects, "letter", nil, "letter and object as L=object (repeatable)")
	cmd.Flags().StringVar(&themed, "theme", "", "derive one object per letter from this theme")
	cmd.Flags().StringVar(&pal, "palette", palette.DefaultKey, "color palette key")
	cmd.Flags().StringSliceVar(&colors, "colors", nil, "custom colors for --palette custom")
	cmd.Flags().StringVar(&model, "model", "", "image model (default from DEFAULT_IMAGE_MODEL)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func parseLetterSpecs(values []string) ([]domain.LetterSpec, error) {
	specs := make([]domain.LetterSpec, 0, len(values))
	for _, v := range values {
		letter, object, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("--letter %q: want L=object", v)
		}
		specs = append(specs, domain.LetterSpec{Letter: letter, Object: object})
	}
	return specs, nil
}

func (c *cli) printJob(job *domain.Job) error {
	fmt.Fprintf(c.out, "status: %s\n", job.Status)
	if job.ErrorMessage != "" {
		fmt.Fprintf(c.out, "error: %s\n", job.ErrorMessage)
	}
	keys := make([]string, 0, len(job.Files))
	for k := range job.Files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(c.out, "%s: %s\n", k, job.Files[k])
	}
	if job.Status == domain.JobStatusFailed {
		return fmt.Errorf("job %s failed", job.ID)
	}
	return nil
}

func (c *cli) themesCmd() *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "themes <name> <theme>",
		Short: "Suggest a theme for each letter of a name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, overall := args[0], args[1]
			var gen theme.Generator
			if provider == "static" {
				gen = theme.NewStaticGenerator()
			} else {
				cfg, logger, err := c.config()
				if err != nil {
					return err
				}
				rt, err := app.New(cmd.Context(), cfg, logger)
				if err != nil {
					return err
				}
				defer rt.Close()
				gen = rt.Theme()
				if provider != "" {
					g, ok := rt.Themes[provider]
					if !ok {
						return fmt.Errorf("unknown theme provider %q", provider)
					}
					gen = g
				}
			}
			variations, err := gen.Variations(cmd.Context(), name, overall)
			if err != nil {
				return err
			}
			for _, v := range theme.Reconcile(domain.LettersOf(name), variations, overall) {
				fmt.Fprintf(c.out, "%s\t%s\n", v.Letter, v.Theme)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "gemini, openai or static (default from THEME_PROVIDER)")
	return cmd
}

func (c *cli) palettesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "palettes",
		Short: "List the color palettes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all := palette.All()
			for _, key := range palette.Keys() {
				p := all[key]
				fmt.Fprintf(c.out, "%s\t%s\t%s\n", key, p.Name, strings.Join(p.Colors, ", "))
			}
			return nil
		},
	}
}

func (c *cli) keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage provider API keys stored in Postgres",
	}
	cmd.AddCommand(c.keysSetCmd())
	return cmd
}

func (c *cli) keysSetCmd() *cobra.Command {
	var (
		provider string
		key      string
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Persist a provider API key in integration_tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider = strings.ToLower(strings.TrimSpace(provider))
			key = strings.TrimSpace(key)
			if key == "" {
				switch provider {
				case credentials.ProviderOpenAI:
					key = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
				case credentials.ProviderGemini:
					key = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
				}
			}
			if key == "" {
				return fmt.Errorf("%s API key is required via --key or environment", strings.ToUpper(provider))
			}
			dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
			if dbURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			pool, err := infra.NewDBPool(ctx, dbURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := infra.NewLoggerTo(c.errOut, "cli").With().Str("cmd", "keys").Str("provider", provider).Logger()
			store := credentials.NewStore(infra.NewSQLRunner(pool, logger))
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
			if err := store.SetToken(ctx, provider, key); err != nil {
				return fmt.Errorf("persist %s api key: %w", provider, err)
			}
			fmt.Fprintf(c.out, "%s API key stored successfully\n", strings.ToUpper(provider))
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", credentials.ProviderGemini, "provider to configure ("+strings.Join(credentials.Providers, " or ")+")")
	cmd.Flags().StringVar(&key, "key", "", "API key (falls back to the provider's environment variable)")
	return cmd
}
