// Package header parses the declarative metadata block of a stash module
// into a typed Header.
//
// A metadata block is a YAML mapping with three mandatory keys (site,
// routes, exports) and one optional key (routing). Routes and exports
// accept either a single scalar or a sequence; a bare scalar is
// normalized to a one-element sequence. Export declarations come in three
// shapes: a bare name (dynamic), a name with a type hint separated by the
// "<-" delimiter (dynamic), or a single-key mapping binding the name to a
// literal value embedded in the header itself (static). A route entry may
// likewise be a single-key mapping naming the writer that renders the
// rule, e.g. "template:index.html: /".
package header

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stashware/stash/internal/diag"
)

// HintDelimiter separates an export name from its type hint.
const HintDelimiter = "<-"

// Export is one declared export, either static (value embedded in the
// header) or dynamic (resolved from the module's data symbols by name).
type Export struct {
	Name   string
	Hint   string
	Static bool
	Value  any
}

// RouteDecl is one declared route pattern, optionally bound to a writer.
type RouteDecl struct {
	Rule   string
	Writer string
}

// Binding maps a routing parameter name to the module symbol holding the
// sequence of candidate values.
type Binding struct {
	Parameter string
	Symbol    string
}

// Header is the parsed metadata block of a stash module.
type Header struct {
	Site    string
	Routes  []RouteDecl
	Exports []Export
	Routing []Binding
}

// Static returns the names of all static exports, in declaration order.
func (h *Header) Static() []string {
	var names []string
	for _, e := range h.Exports {
		if e.Static {
			names = append(names, e.Name)
		}
	}
	return names
}

// Error reports a metadata block that exists but is malformed. It is
// fatal to the owning module's contribution, never to the whole build.
type Error struct {
	Module string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("header: %s", e.Reason)
	}
	return fmt.Sprintf("header: module %s: %s", e.Module, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Parser parses metadata blocks, reporting duplicate declarations to an
// optional diagnostics collector.
type Parser struct {
	diags *diag.Collector
}

// NewParser creates a parser. The collector may be nil.
func NewParser(dc *diag.Collector) *Parser {
	return &Parser{diags: dc}
}

// Parse parses raw metadata text into a Header. It returns (nil, nil)
// when the module carries no metadata block at all: empty text, or a YAML
// document that is not a mapping. That is a legitimate non-stash module,
// not an error. A block that is a mapping but is unparsable or lacks one
// of site/routes/exports fails with *Error.
func (p *Parser) Parse(module, src string) (*Header, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		return nil, &Error{Module: module, Reason: "unparsable metadata", Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		// The module has text attached, but it is not a metadata mapping.
		return nil, nil
	}

	fields := make(map[string]*yaml.Node, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		fields[root.Content[i].Value] = root.Content[i+1]
	}

	h := &Header{}

	siteNode, ok := fields["site"]
	if !ok || siteNode.Kind != yaml.ScalarNode || siteNode.Value == "" {
		return nil, &Error{Module: module, Reason: "missing or invalid required field: site"}
	}
	h.Site = siteNode.Value

	routesNode, ok := fields["routes"]
	if !ok {
		return nil, &Error{Module: module, Reason: "missing required field: routes"}
	}
	routes, err := p.parseRoutes(module, h.Site, routesNode)
	if err != nil {
		return nil, err
	}
	h.Routes = routes

	exportsNode, ok := fields["exports"]
	if !ok {
		return nil, &Error{Module: module, Reason: "missing required field: exports"}
	}
	exports, err := p.parseExports(module, h.Site, exportsNode)
	if err != nil {
		return nil, err
	}
	h.Exports = exports

	if routingNode, ok := fields["routing"]; ok {
		bindings, err := parseRouting(module, routingNode)
		if err != nil {
			return nil, err
		}
		h.Routing = bindings
	}

	return h, nil
}

func (p *Parser) parseRoutes(module, site string, node *yaml.Node) ([]RouteDecl, error) {
	entries, err := sequence(module, "routes", node)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(entries))
	var routes []RouteDecl
	for _, entry := range entries {
		var decl RouteDecl
		switch entry.Kind {
		case yaml.ScalarNode:
			decl = RouteDecl{Rule: entry.Value}
		case yaml.MappingNode:
			if len(entry.Content) != 2 {
				return nil, &Error{Module: module, Reason: "route mapping must have exactly one writer: rule pair"}
			}
			decl = RouteDecl{Writer: entry.Content[0].Value, Rule: entry.Content[1].Value}
		default:
			return nil, &Error{Module: module, Reason: "route entry must be a rule or a writer: rule mapping"}
		}
		if decl.Rule == "" {
			return nil, &Error{Module: module, Reason: "route entry has an empty rule"}
		}
		if seen[decl.Rule] {
			p.diags.Add(diag.Warning{
				Kind: diag.DuplicateRoute, Site: site, Rule: decl.Rule, Module: module,
				Detail: "rule declared more than once in header",
			})
			continue
		}
		seen[decl.Rule] = true
		routes = append(routes, decl)
	}
	return routes, nil
}

func (p *Parser) parseExports(module, site string, node *yaml.Node) ([]Export, error) {
	entries, err := sequence(module, "exports", node)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]int, len(entries))
	var exports []Export
	add := func(e Export) {
		if i, dup := seen[e.Name]; dup {
			p.diags.Add(diag.Warning{
				Kind: diag.DuplicateExport, Site: site, Module: module,
				Detail: fmt.Sprintf("export %q declared more than once", e.Name),
			})
			exports[i] = e
			return
		}
		seen[e.Name] = len(exports)
		exports = append(exports, e)
	}

	for _, entry := range entries {
		switch entry.Kind {
		case yaml.ScalarNode:
			name, hint := splitHint(entry.Value)
			if name == "" {
				return nil, &Error{Module: module, Reason: "export entry has an empty name"}
			}
			add(Export{Name: name, Hint: hint})
		case yaml.MappingNode:
			for i := 0; i+1 < len(entry.Content); i += 2 {
				name := entry.Content[i].Value
				if name == "" {
					return nil, &Error{Module: module, Reason: "static export has an empty name"}
				}
				var value any
				if err := entry.Content[i+1].Decode(&value); err != nil {
					return nil, &Error{Module: module, Reason: fmt.Sprintf("invalid static value for export %q", name), Err: err}
				}
				add(Export{Name: name, Static: true, Value: value})
			}
		default:
			return nil, &Error{Module: module, Reason: "export entry must be a name, a hinted name, or a name: value mapping"}
		}
	}
	return exports, nil
}

func parseRouting(module string, node *yaml.Node) ([]Binding, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, &Error{Module: module, Reason: "routing must be a sequence of parameter: symbol mappings"}
	}
	var bindings []Binding
	for _, entry := range node.Content {
		if entry.Kind != yaml.MappingNode || len(entry.Content) != 2 {
			return nil, &Error{Module: module, Reason: "routing entry must be a single parameter: symbol mapping"}
		}
		param := entry.Content[0].Value
		symbol := entry.Content[1].Value
		if param == "" || symbol == "" {
			return nil, &Error{Module: module, Reason: "routing entry has an empty parameter or symbol name"}
		}
		bindings = append(bindings, Binding{Parameter: param, Symbol: symbol})
	}
	return bindings, nil
}

// sequence normalizes a scalar to a one-element sequence.
func sequence(module, field string, node *yaml.Node) ([]*yaml.Node, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			return nil, &Error{Module: module, Reason: "empty value for required field: " + field}
		}
		return []*yaml.Node{node}, nil
	case yaml.SequenceNode:
		if len(node.Content) == 0 {
			return nil, &Error{Module: module, Reason: "empty sequence for required field: " + field}
		}
		return node.Content, nil
	default:
		return nil, &Error{Module: module, Reason: field + " must be a scalar or a sequence"}
	}
}

func splitHint(s string) (name, hint string) {
	name, hint, found := strings.Cut(s, HintDelimiter)
	name = strings.TrimSpace(name)
	if !found {
		return name, ""
	}
	return name, strings.TrimSpace(hint)
}
