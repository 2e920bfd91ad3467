// Package stash compiles a tree of declaratively-annotated content
// modules into per-route contexts: discovery walks the content tree,
// resolution turns each module's header and data symbols into one Context
// per concrete route, and aggregation merges all modules into a single
// site-scoped route table.
package stash

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Module is one content unit: declarative metadata plus data symbols.
type Module interface {
	// Name is the dotted module name, e.g. "content.news.index".
	Name() string
	// Metadata is the raw metadata block text. Empty means the module is
	// not a stash module and is skipped.
	Metadata() string
	// Symbols exposes the module's data symbols for export resolution.
	Symbols() SymbolTable
}

// SymbolTable resolves a data symbol by name. Symbol values may be plain
// values or niladic functions (func() any and friends), which the
// resolver invokes to support computed sequences.
type SymbolTable interface {
	Resolve(name string) (any, bool)
}

// MapSymbols is a SymbolTable backed by a plain map.
type MapSymbols map[string]any

// Resolve implements SymbolTable.
func (m MapSymbols) Resolve(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// fileModule is a module loaded from a YAML content file. The first YAML
// document is the metadata block, the optional second document a mapping
// of data symbols.
type fileModule struct {
	name    string
	meta    string
	symbols MapSymbols
}

func (m *fileModule) Name() string         { return m.name }
func (m *fileModule) Metadata() string     { return m.meta }
func (m *fileModule) Symbols() SymbolTable { return m.symbols }

// LoadFile loads a content module from path. The module name is derived
// from the path relative to root: separators become dots, the extension
// is stripped, and a directory's index file names the directory itself.
func LoadFile(root, path string) (Module, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading module file: %w", err)
	}

	name, err := moduleName(root, path)
	if err != nil {
		return nil, err
	}

	meta, data := splitDocuments(string(raw))

	symbols := MapSymbols{}
	if strings.TrimSpace(data) != "" {
		if err := yaml.Unmarshal([]byte(data), &symbols); err != nil {
			return nil, fmt.Errorf("module %s: invalid data document: %w", name, err)
		}
	}

	return &fileModule{name: name, meta: meta, symbols: symbols}, nil
}

// NewModule creates a programmatic module from raw metadata text and a
// symbol table. Symbol values may include computed thunks.
func NewModule(name, metadata string, symbols SymbolTable) Module {
	if symbols == nil {
		symbols = MapSymbols{}
	}
	return &literalModule{name: name, meta: metadata, symbols: symbols}
}

type literalModule struct {
	name    string
	meta    string
	symbols SymbolTable
}

func (m *literalModule) Name() string         { return m.name }
func (m *literalModule) Metadata() string     { return m.meta }
func (m *literalModule) Symbols() SymbolTable { return m.symbols }

func moduleName(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("module path %s outside content root: %w", path, err)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	parts := strings.Split(filepath.ToSlash(rel), "/")
	// The index file of a directory names the directory itself; the index
	// file of the root names the root package.
	if parts[len(parts)-1] == indexName {
		parts = parts[:len(parts)-1]
	}
	base := filepath.Base(root)
	if len(parts) == 0 {
		return base, nil
	}
	return base + "." + strings.Join(parts, "."), nil
}

// splitDocuments splits file content into the metadata document and the
// optional data document at the first YAML document separator.
func splitDocuments(src string) (meta, data string) {
	lines := strings.Split(src, "\n")
	start := 0
	// A leading separator line belongs to the first document.
	if len(lines) > 0 && isSeparator(lines[0]) {
		start = 1
	}
	for i := start; i < len(lines); i++ {
		if isSeparator(lines[i]) {
			return strings.Join(lines[start:i], "\n"), strings.Join(lines[i+1:], "\n")
		}
	}
	return strings.Join(lines[start:], "\n"), ""
}

func isSeparator(line string) bool {
	return strings.TrimRight(line, " \t") == "---"
}
