// Package cli implements the wodocr command line: parsing workout text and
// photos, resolving movement names, and managing the local catalog cache.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/claude/wodocr/internal/catalog"
	"github.com/claude/wodocr/internal/config"
	"github.com/claude/wodocr/internal/ingest"
	"github.com/claude/wodocr/internal/matcher"
	"github.com/claude/wodocr/internal/ocr"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type app struct {
	configPath string
	verbose    bool
	noColor    bool
	version    string

	cfg *config.Config
	log *slog.Logger
}

// NewRootCommand builds the command tree. Config is loaded lazily, so
// commands that never touch the catalog work without a config file.
func NewRootCommand(version string) *cobra.Command {
	a := &app{version: version}

	root := &cobra.Command{
		Use:           "wodocr",
		Short:         "Turn whiteboard workouts into structured, catalog-matched WODs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.noColor {
				color.NoColor = true
			}
			level := "warn"
			if a.verbose {
				level = "debug"
			}
			a.log = config.LogConfig{Level: level, Format: "text"}.NewLogger(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "Path to configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging on stderr")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		a.parseCommand(),
		a.scanCommand(),
		a.resolveCommand(),
		a.catalogCommand(),
		a.mcpCommand(),
	)
	return root
}

// Execute runs the CLI with os.Args.
func Execute(version string) error {
	return NewRootCommand(version).Execute()
}

func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	return cfg, nil
}

func (a *app) logger() *slog.Logger {
	if a.log == nil {
		a.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a.log
}

// openStore wires the configured source to the on-disk cache. The returned
// cleanup func is never nil.
func (a *app) openStore(ctx context.Context) (*catalog.Store, func(), error) {
	cfg, err := a.config()
	if err != nil {
		return nil, func() {}, err
	}

	src, closeSrc, err := catalog.Open(ctx, cfg.Catalog)
	if err != nil {
		return nil, func() {}, fmt.Errorf("opening catalog source: %w", err)
	}
	cache, err := catalog.OpenCache(cfg.Catalog.CacheDir)
	if err != nil {
		closeSrc()
		return nil, func() {}, err
	}

	cleanup := func() {
		cache.Close()
		closeSrc()
	}
	return catalog.NewStore(src, cache, a.logger()), cleanup, nil
}

// loadCatalog fills store from the cache and, unless offline, refreshes it
// from the source. A failed refresh is only fatal when nothing is cached.
func (a *app) loadCatalog(ctx context.Context, store *catalog.Store, offline bool) error {
	if err := store.Restore(ctx); err != nil {
		a.logger().Warn("catalog cache unreadable", "error", err)
	}
	if !offline {
		if _, err := store.Refresh(ctx); err != nil {
			if store.Len() == 0 {
				return err
			}
			a.logger().Warn("using cached catalog", "error", err)
		}
	}
	if store.Len() == 0 {
		return errors.New("catalog is empty; run `wodocr catalog sync` first")
	}
	return nil
}

func (a *app) newMatcher(threshold float64, override bool) (*matcher.Matcher, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	aliases, err := matcher.LoadAliases(cfg.Matcher.AliasesFile)
	if err != nil {
		return nil, err
	}
	if !override {
		threshold = cfg.Matcher.Threshold
	}
	return matcher.New(aliases, threshold), nil
}

// provider assembles the full local pipeline. The OCR client is only
// attached when a service URL is configured.
func (a *app) provider(ctx context.Context, offline bool, threshold float64, override bool) (*ingest.Provider, *catalog.Store, func(), error) {
	store, cleanup, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, cleanup, err
	}
	if err := a.loadCatalog(ctx, store, offline); err != nil {
		return nil, nil, cleanup, err
	}
	m, err := a.newMatcher(threshold, override)
	if err != nil {
		return nil, nil, cleanup, err
	}

	var rec ingest.Recognizer
	if a.cfg.OCR.URL != "" {
		rec = ocr.NewClient(a.cfg.OCR.URL, a.cfg.OCR.APIKey, a.cfg.OCR.RateLimit, a.cfg.OCR.Timeout)
	}
	return ingest.NewProvider(store, m, rec, a.logger()), store, cleanup, nil
}
