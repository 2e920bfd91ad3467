package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stashware/stash/internal/config"
	"github.com/stashware/stash/internal/diag"
	"github.com/stashware/stash/internal/logging"
	"github.com/stashware/stash/internal/server"
	"github.com/stashware/stash/internal/shelf"
	"github.com/stashware/stash/internal/stash"
	"github.com/stashware/stash/internal/watcher"
	"github.com/stashware/stash/internal/writer"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve [site]",
	Short: "Run the development server for a site",
	Long: `Compile the content tree, shelve the site, and serve it locally.
With --watch, content edits recompile and re-shelve the site and reload
the route table without restarting.

Examples:
  stash serve mysite
  stash serve mysite --watch
  stash serve mysite -p 3000`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "Re-shelve on content changes")

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadApp()
	if err != nil {
		return err
	}
	site, err := siteArg(args, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	dc := diag.NewCollector()
	sh, err := openShelf(ctx, cfg, dc)
	if err != nil {
		return err
	}
	defer sh.Close()

	writers := writer.NewRegistry(cfg.Writers, cfg.Content.Templates, dc)
	srv := server.New(cfg, logger, sh, writers)

	if err := compileAndMount(ctx, cfg, logger, dc, sh, srv, site); err != nil {
		return err
	}
	reportWarnings(ctx, logger, dc)

	if serveWatch {
		if err := startWatcher(ctx, cfg, logger, dc, sh, srv, site); err != nil {
			return err
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info(ctx, "shutting down")
		cancel()
	}()

	fmt.Printf("Serving site %s at http://%s:%d\n", site, cfg.Server.Host, cfg.Server.Port)
	if err := srv.Start(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// compileAndMount rebuilds the route table from the content tree, pushes
// it onto the shelf, and mounts it on the server.
func compileAndMount(ctx context.Context, cfg *config.Config, logger logging.Logger,
	dc *diag.Collector, sh shelf.Shelf, srv *server.Server, site string) error {

	registry, err := stash.Compile(ctx, cfg.Content.Root, dc, logger)
	if err != nil {
		return err
	}
	for _, route := range registry.Routes(site) {
		if err := sh.Put(ctx, route.Site, route.Rule, route.Context); err != nil {
			return fmt.Errorf("shelving %s: %w", route.Rule, err)
		}
	}
	return srv.Mount(registry, site)
}

// startWatcher wires content-tree changes to recompilation.
func startWatcher(ctx context.Context, cfg *config.Config, logger logging.Logger,
	dc *diag.Collector, sh shelf.Shelf, srv *server.Server, site string) error {

	w, err := watcher.New(300*time.Millisecond, nil, func(paths []string) {
		logger.Info(ctx, "content changed, re-shelving", "files", len(paths))
		if err := compileAndMount(ctx, cfg, logger, dc, sh, srv, site); err != nil {
			logger.Error(ctx, err, "re-shelve failed")
			return
		}
		reportWarnings(ctx, logger, dc)
		dc.Clear()
	})
	if err != nil {
		return err
	}
	if err := w.AddRecursive(cfg.Content.Root); err != nil {
		return fmt.Errorf("watching content root: %w", err)
	}

	go func() {
		if err := w.Start(ctx); err != nil && err != context.Canceled {
			logger.Error(ctx, err, "watcher stopped")
		}
	}()
	return nil
}
