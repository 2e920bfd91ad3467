// Package routes defines the compiled route table of a stash site: the
// Context resolved for each concrete route and a registry that merges
// contributions from many modules.
package routes

import (
	"github.com/stashware/stash/internal/header"
)

// RoutingKey is the reserved context key holding the routing overlay: the
// parameter values bound to one concrete route instance.
const RoutingKey = "_routing"

// Context maps export names to resolved values for one concrete route.
// Values are JSON/template-compatible: scalars, sequences, mappings.
// A Context is immutable once placed into a Route.
type Context map[string]any

// Overlay returns the routing overlay, or nil when the route references
// no routing parameters.
func (c Context) Overlay() map[string]any {
	if o, ok := c[RoutingKey].(map[string]any); ok {
		return o
	}
	return nil
}

// Copy returns a deep copy of the context, so routes sharing a base
// context never alias each other's values.
func (c Context) Copy() Context {
	if c == nil {
		return nil
	}
	return deepCopyMap(c)
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case Context:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}

// Route is one routable site entry. Routes are keyed uniquely by
// (Site, Rule); duplicate keys across modules merge rather than error.
type Route struct {
	// Site identifies the owning site.
	Site string
	// Rule is the URL rule of this route. After routing expansion it is
	// normally concrete, but a parameter left unbound keeps its
	// placeholder form.
	Rule string
	// Exports is the declared export schema from the defining headers.
	Exports []header.Export
	// Static lists export names whose values were embedded in a header.
	Static []string
	// WriterName names the writer that renders this route. Empty selects
	// the application default writer.
	WriterName string
	// Context is the resolved context, or nil until populated by
	// resolution or by shelf lookup at request time.
	Context Context
	// Modules lists the names of the modules this route was built from.
	Modules []string
}
