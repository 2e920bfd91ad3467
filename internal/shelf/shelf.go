// Package shelf persists per-route contexts keyed by (site, rule).
//
// The shelf decouples expensive content compilation from request serving:
// the shelve operation pushes the compiled route table in, and route
// handlers read contexts back out at request time. Backends are
// pluggable; the default is a single local transactional SQLite file.
// Every backend honors the same contract: Put upserts atomically, Get on
// an absent key fails with ErrNotFound, List enumeration order is stable
// within one store instance, and Drop deletes one rule or a whole site.
package shelf

import (
	"context"
	"errors"
	"fmt"

	"github.com/stashware/stash/internal/config"
	"github.com/stashware/stash/internal/diag"
	"github.com/stashware/stash/internal/routes"
)

// ErrNotFound is the sentinel matched by errors.Is for shelf misses.
var ErrNotFound = errors.New("shelf: entry not found")

// NotFoundError reports a miss for a specific (site, rule) key.
type NotFoundError struct {
	Site string
	Rule string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("shelf: no entry for (%s, %s)", e.Site, e.Rule)
}

// Is makes errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Key identifies one shelf entry.
type Key struct {
	Site string
	Rule string
}

// Shelf is the persistence capability consumed by the shelve command and
// the server. Implementations must keep at most one entry per (site,
// rule) pair and never let a reader observe a half-written entry.
type Shelf interface {
	// Get retrieves the context for (site, rule), failing with an error
	// matching ErrNotFound when absent.
	Get(ctx context.Context, site, rule string) (routes.Context, error)
	// Put upserts the context for (site, rule), atomically with respect
	// to concurrent Get/List on the same key.
	Put(ctx context.Context, site, rule string, v routes.Context) error
	// List enumerates keys for the site; an empty rule lists all rules.
	List(ctx context.Context, site, rule string) ([]Key, error)
	// Drop deletes one entry, or every entry for the site when rule is
	// empty.
	Drop(ctx context.Context, site, rule string) error
	// Close releases the backing store.
	Close() error
}

// Open constructs the configured shelf backend. The capability object is
// created once at application build time and passed explicitly to
// anything needing persistence.
func Open(ctx context.Context, cfg config.ShelfConfig, dc *diag.Collector) (Shelf, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return OpenSQLite(cfg.Path, dc)
	case "memory":
		return NewMemory(dc), nil
	case "mongo":
		return OpenMongo(ctx, cfg.URI, cfg.Database, dc)
	default:
		return nil, fmt.Errorf("shelf: unknown backend %q", cfg.Backend)
	}
}
