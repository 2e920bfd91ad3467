// Package server serves a shelved site over HTTP. Each shelved route is
// registered on the router; the handler reads the route's context from
// the shelf at request time and hands it to the route's writer. A missing
// shelf entry is a hard not-found, never silently defaulted.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stashware/stash/internal/config"
	"github.com/stashware/stash/internal/logging"
	"github.com/stashware/stash/internal/routes"
	"github.com/stashware/stash/internal/shelf"
	"github.com/stashware/stash/internal/writer"
)

// Server is the development HTTP server for one stash site.
type Server struct {
	cfg     *config.Config
	logger  logging.Logger
	shelf   shelf.Shelf
	writers *writer.Registry

	mu     sync.RWMutex
	router chi.Router
}

// New creates a server. Mount must be called before serving.
func New(cfg *config.Config, logger logging.Logger, sh shelf.Shelf, writers *writer.Registry) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		cfg:     cfg,
		logger:  logger.WithComponent("server"),
		shelf:   sh,
		writers: writers,
		router:  chi.NewRouter(),
	}
}

// Mount builds a fresh router from the site's route table and swaps it
// in. Safe to call again while serving, which is how watch mode reloads
// routes. Resolving a route's writer happens here, at build time, so an
// unknown writer name fails the mount rather than the first request.
func (s *Server) Mount(registry *routes.Registry, site string) error {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	for _, route := range registry.Routes(site) {
		w, err := s.writers.Resolve(route.WriterName)
		if err != nil {
			return fmt.Errorf("route %s: %w", route.Rule, err)
		}
		router.Get(chiPattern(route.Rule), s.handler(site, route.Rule, w))
	}

	s.mu.Lock()
	s.router = router
	s.mu.Unlock()
	return nil
}

// handler serves one route: shelf lookup, then writer dispatch.
func (s *Server) handler(site, rule string, w writer.Writer) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ctx, err := s.shelf.Get(r.Context(), site, rule)
		if err != nil {
			if errors.Is(err, shelf.ErrNotFound) {
				http.NotFound(rw, r)
				return
			}
			s.logger.Error(r.Context(), err, "shelf read failed", "site", site, "rule", rule)
			http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		body, contentType, err := w.Write(r, ctx)
		if err != nil {
			s.logger.Error(r.Context(), err, "writer failed", "site", site, "rule", rule)
			http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		rw.Header().Set("Content-Type", contentType)
		_, _ = rw.Write(body)
	}
}

// ServeHTTP delegates to the currently mounted router.
func (s *Server) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	router := s.router
	s.mu.RUnlock()
	router.ServeHTTP(rw, r)
}

// Start serves until the context is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info(ctx, "serving", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// placeholderPattern matches <name> and <type:name> placeholders left in
// rules whose routing parameters were never bound.
var placeholderPattern = regexp.MustCompile(`<(?:[^:>]+:)?([^:>]+)>`)

// chiPattern converts a rule to the router's placeholder syntax. Rules
// are normally concrete after routing expansion; unbound parameters
// become wildcard path segments.
func chiPattern(rule string) string {
	return placeholderPattern.ReplaceAllString(rule, "{$1}")
}
