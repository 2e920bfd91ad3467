package routes

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stashware/stash/internal/diag"
)

// Registry holds the authoritative site→rule→Route table for one build.
// Registering a route whose (site, rule) key already exists merges the new
// contribution into the existing route: context values merge key-by-key
// with the later value winning, and a DuplicateContext warning is emitted.
type Registry struct {
	mu       sync.RWMutex
	sites    map[string]map[string]*Route
	watchers []chan Event
	diags    *diag.Collector
}

// Event reports a change in the registry.
type Event struct {
	Type      EventType
	Route     *Route
	Timestamp time.Time
}

// EventType is the kind of registry change.
type EventType int

const (
	EventAdded EventType = iota
	EventMerged
)

// NewRegistry creates an empty registry. The collector may be nil.
func NewRegistry(dc *diag.Collector) *Registry {
	return &Registry{
		sites: make(map[string]map[string]*Route),
		diags: dc,
	}
}

// Register adds a route, merging into any existing route with the same
// (site, rule) key.
func (r *Registry) Register(route *Route) {
	r.mu.Lock()

	site := r.sites[route.Site]
	if site == nil {
		site = make(map[string]*Route)
		r.sites[route.Site] = site
	}

	eventType := EventAdded
	existing, dup := site[route.Rule]
	if dup {
		eventType = EventMerged
		r.merge(existing, route)
		route = existing
	} else {
		site[route.Rule] = route
	}

	event := Event{Type: eventType, Route: route, Timestamp: time.Now()}
	watchers := make([]chan Event, len(r.watchers))
	copy(watchers, r.watchers)
	r.mu.Unlock()

	for _, w := range watchers {
		select {
		case w <- event:
		default:
			// Skip if channel is full.
		}
	}
}

// merge folds the new route's contribution into the existing one. Caller
// holds the write lock.
func (r *Registry) merge(existing, incoming *Route) {
	module := ""
	if len(incoming.Modules) > 0 {
		module = incoming.Modules[len(incoming.Modules)-1]
	}
	r.diags.Add(diag.Warning{
		Kind: diag.DuplicateContext, Site: existing.Site, Rule: existing.Rule, Module: module,
		Detail: fmt.Sprintf("route context merged from %d modules, later values win", len(existing.Modules)+len(incoming.Modules)),
	})

	if incoming.Context != nil {
		if existing.Context == nil {
			existing.Context = Context{}
		}
		for k, v := range incoming.Context {
			existing.Context[k] = v
		}
	}
	existing.Exports = append(existing.Exports, incoming.Exports...)
	existing.Static = append(existing.Static, incoming.Static...)
	if incoming.WriterName != "" {
		existing.WriterName = incoming.WriterName
	}
	existing.Modules = append(existing.Modules, incoming.Modules...)
}

// Get retrieves a route by (site, rule).
func (r *Registry) Get(site, rule string) (*Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.sites[site][rule]
	return route, ok
}

// Sites returns all site identifiers, sorted.
func (r *Registry) Sites() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sites := make([]string, 0, len(r.sites))
	for s := range r.sites {
		sites = append(sites, s)
	}
	sort.Strings(sites)
	return sites
}

// Routes returns all routes for a site, sorted by rule for deterministic
// iteration.
func (r *Registry) Routes(site string) []*Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rules := r.sites[site]
	out := make([]*Route, 0, len(rules))
	for _, route := range rules {
		out = append(out, route)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rule < out[j].Rule })
	return out
}

// SiteContexts returns the site→rule→Context mapping for a site.
func (r *Registry) SiteContexts(site string) map[string]Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Context, len(r.sites[site]))
	for rule, route := range r.sites[site] {
		out[rule] = route.Context
	}
	return out
}

// Count returns the number of routes for the site, or for all sites when
// site is empty.
func (r *Registry) Count(site string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if site != "" {
		return len(r.sites[site])
	}
	n := 0
	for _, rules := range r.sites {
		n += len(rules)
	}
	return n
}

// Watch returns a channel receiving registry events.
func (r *Registry) Watch() <-chan Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan Event, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it.
func (r *Registry) UnWatch(ch <-chan Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, w := range r.watchers {
		if w == ch {
			close(w)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}
