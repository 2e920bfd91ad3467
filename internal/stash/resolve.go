package stash

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/stashware/stash/internal/diag"
	"github.com/stashware/stash/internal/header"
	"github.com/stashware/stash/internal/routes"
)

// MissingExportError reports a declared export or routing symbol with no
// matching data symbol in the module. It is fatal to that module's
// contribution.
type MissingExportError struct {
	Module string
	Symbol string
}

func (e *MissingExportError) Error() string {
	return fmt.Sprintf("stash: module %s: no data symbol for %q", e.Module, e.Symbol)
}

// ResolvedRoute is one concrete route produced by resolving a module.
type ResolvedRoute struct {
	Site    string
	Rule    string
	Writer  string
	Exports []header.Export
	Static  []string
	Context routes.Context
	Module  string
}

// Resolver turns a module's header and data symbols into concrete
// per-route contexts.
type Resolver struct {
	parser *header.Parser
	diags  *diag.Collector
}

// NewResolver creates a resolver. The collector may be nil.
func NewResolver(dc *diag.Collector) *Resolver {
	return &Resolver{parser: header.NewParser(dc), diags: dc}
}

// Resolve parses the module's metadata and resolves one Context per
// concrete route. It returns (nil, nil) for non-stash modules. Declared
// exports resolve to their header literal when static, otherwise to the
// same-named data symbol. Route patterns referencing routing parameters
// are expanded into one concrete route per value combination, each
// carrying a routing overlay with exactly the parameters that pattern
// references.
func (r *Resolver) Resolve(m Module) ([]ResolvedRoute, error) {
	h, err := r.parser.Parse(m.Name(), m.Metadata())
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, nil
	}

	base := routes.Context{}
	for _, export := range h.Exports {
		if export.Static {
			base[export.Name] = export.Value
			continue
		}
		v, ok := m.Symbols().Resolve(export.Name)
		if !ok {
			return nil, &MissingExportError{Module: m.Name(), Symbol: export.Name}
		}
		base[export.Name] = callIfThunk(v)
	}

	bindings, err := r.resolveBindings(m, h)
	if err != nil {
		return nil, err
	}

	var resolved []ResolvedRoute
	for _, decl := range h.Routes {
		for _, expanded := range expand(decl.Rule, h.Routing, bindings) {
			ctx := base.Copy()
			delete(ctx, routes.RoutingKey)
			if len(expanded.overlay) > 0 {
				ctx[routes.RoutingKey] = expanded.overlay
			}
			resolved = append(resolved, ResolvedRoute{
				Site:    h.Site,
				Rule:    expanded.rule,
				Writer:  decl.Writer,
				Exports: h.Exports,
				Static:  h.Static(),
				Context: ctx,
				Module:  m.Name(),
			})
		}
	}
	return resolved, nil
}

// resolveBindings resolves each routing binding's symbol to its sequence
// of candidate values. A binding never referenced by any route is still
// resolved, matching the header's declared intent, but is silently
// unused.
func (r *Resolver) resolveBindings(m Module, h *header.Header) (map[string][]any, error) {
	if len(h.Routing) == 0 {
		return nil, nil
	}
	bindings := make(map[string][]any, len(h.Routing))
	for _, b := range h.Routing {
		v, ok := m.Symbols().Resolve(b.Symbol)
		if !ok {
			return nil, &MissingExportError{Module: m.Name(), Symbol: b.Symbol}
		}
		seq, ok := asSequence(callIfThunk(v))
		if !ok {
			return nil, fmt.Errorf("stash: module %s: routing symbol %q is not a sequence", m.Name(), b.Symbol)
		}
		bindings[b.Parameter] = seq
	}
	return bindings, nil
}

// expandedRoute is one concrete rule plus its routing overlay.
type expandedRoute struct {
	rule    string
	overlay map[string]any
}

// expand produces the concrete routes for one declared pattern. A pattern
// referencing no routing parameters yields itself, with no overlay. A
// parameter referenced by the pattern but missing from the bindings is
// left unresolved: its placeholder stays in the rule and it is absent
// from the overlay.
func expand(rule string, order []header.Binding, bindings map[string][]any) []expandedRoute {
	var used []string
	for _, b := range order {
		if UsesParameter(rule, b.Parameter) {
			used = append(used, b.Parameter)
		}
	}
	if len(used) == 0 {
		return []expandedRoute{{rule: rule}}
	}

	expanded := []expandedRoute{{rule: rule, overlay: map[string]any{}}}
	for _, param := range used {
		values := bindings[param]
		next := make([]expandedRoute, 0, len(expanded)*len(values))
		for _, e := range expanded {
			for _, v := range values {
				overlay := make(map[string]any, len(e.overlay)+1)
				for k, ov := range e.overlay {
					overlay[k] = ov
				}
				overlay[param] = v
				next = append(next, expandedRoute{
					rule:    substitute(e.rule, param, v),
					overlay: overlay,
				})
			}
		}
		expanded = next
	}
	return expanded
}

// UsesParameter reports whether a route pattern references a routing
// parameter, in either the bare <name> form or any qualified <type:name>
// form. This matching rule is the single source of truth for "does route
// R use parameter P".
func UsesParameter(rule, parameter string) bool {
	re := regexp.MustCompile(`[<:]` + regexp.QuoteMeta(parameter) + `>`)
	return re.MatchString(rule)
}

// substitute replaces every placeholder for the parameter, qualified or
// not, with the concrete value.
func substitute(rule, parameter string, value any) string {
	re := regexp.MustCompile(`<(?:[^:>]+:)?` + regexp.QuoteMeta(parameter) + `>`)
	return re.ReplaceAllString(rule, fmt.Sprintf("%v", value))
}

// callIfThunk invokes niladic function symbols so that modules can export
// computed values and sequences.
func callIfThunk(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func || rv.Type().NumIn() != 0 || rv.Type().NumOut() < 1 {
		return v
	}
	return rv.Call(nil)[0].Interface()
}

// asSequence normalizes any slice or array value to []any.
func asSequence(v any) ([]any, bool) {
	if seq, ok := v.([]any); ok {
		return seq, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
