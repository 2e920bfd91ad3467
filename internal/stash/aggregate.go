package stash

import (
	"context"

	"github.com/stashware/stash/internal/diag"
	"github.com/stashware/stash/internal/logging"
	"github.com/stashware/stash/internal/routes"
)

// Aggregator merges per-module route contexts across all discovered
// modules into one site-scoped route table. Parse and resolution errors
// are contained per module: the failing module is logged and skipped, and
// aggregation continues.
type Aggregator struct {
	resolver *Resolver
	diags    *diag.Collector
	logger   logging.Logger
}

// NewAggregator creates an aggregator. The collector and logger may be
// nil.
func NewAggregator(dc *diag.Collector, logger logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Aggregator{
		resolver: NewResolver(dc),
		diags:    dc,
		logger:   logger.WithComponent("aggregate"),
	}
}

// Aggregate resolves every module and merges the results into a route
// registry. Duplicate (site, rule) contributions merge key-by-key with
// later values winning, observable as DuplicateContext warnings.
func (a *Aggregator) Aggregate(ctx context.Context, modules []Module) *routes.Registry {
	registry := routes.NewRegistry(a.diags)
	for _, m := range modules {
		resolved, err := a.resolver.Resolve(m)
		if err != nil {
			a.logger.Warn(ctx, "skipping module", "module", m.Name(), "error", err.Error())
			continue
		}
		if resolved == nil {
			a.logger.Debug(ctx, "module carries no metadata", "module", m.Name())
			continue
		}
		for _, rr := range resolved {
			registry.Register(&routes.Route{
				Site:       rr.Site,
				Rule:       rr.Rule,
				Exports:    rr.Exports,
				Static:     rr.Static,
				WriterName: rr.Writer,
				Context:    rr.Context,
				Modules:    []string{rr.Module},
			})
		}
	}
	return registry
}

// Compile discovers the content tree under root and aggregates every
// module into a route registry. This is the build-time entry point shared
// by the shelve command and the development server.
func Compile(ctx context.Context, root string, dc *diag.Collector, logger logging.Logger) (*routes.Registry, error) {
	modules, err := NewDiscoverer(root, logger).Discover(ctx)
	if err != nil {
		return nil, err
	}
	return NewAggregator(dc, logger).Aggregate(ctx, modules), nil
}
