package cmd

import (
	"context"
	"fmt"

	"github.com/stashware/stash/internal/config"
	"github.com/stashware/stash/internal/diag"
	"github.com/stashware/stash/internal/logging"
	"github.com/stashware/stash/internal/shelf"
)

// loadApp loads configuration and builds the application logger.
func loadApp() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	logger := logging.New(&logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return cfg, logger, nil
}

// siteArg picks the site from the first positional argument, falling back
// to the configured site.
func siteArg(args []string, cfg *config.Config) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if cfg.Site != "" {
		return cfg.Site, nil
	}
	return "", fmt.Errorf("no site given: pass one as an argument or set site in .stash.yml")
}

// ruleArg picks the optional rule filter from the second positional
// argument.
func ruleArg(args []string) string {
	if len(args) > 1 {
		return args[1]
	}
	return ""
}

// openShelf constructs the configured shelf backend.
func openShelf(ctx context.Context, cfg *config.Config, dc *diag.Collector) (shelf.Shelf, error) {
	s, err := shelf.Open(ctx, cfg.Shelf, dc)
	if err != nil {
		return nil, fmt.Errorf("opening shelf: %w", err)
	}
	return s, nil
}

// reportWarnings logs every collected diagnostic. Warnings never fail a
// command.
func reportWarnings(ctx context.Context, logger logging.Logger, dc *diag.Collector) {
	for _, w := range dc.Warnings() {
		logger.Warn(ctx, "diagnostic", "warning", w.String())
	}
}
