// Package diag collects non-fatal warnings emitted while compiling and
// shelving a site. Duplicate declarations and dropped context values are
// observable events, not errors: processing always continues, and callers
// inspect the collector afterwards to report what happened.
package diag

import (
	"fmt"
	"sync"
)

// Kind classifies a warning.
type Kind int

const (
	// DuplicateRoute is emitted when a rule is declared more than once in a
	// single module header.
	DuplicateRoute Kind = iota
	// DuplicateExport is emitted when an export name is declared more than
	// once in a single module header.
	DuplicateExport
	// DuplicateContext is emitted when two modules contribute contexts for
	// the same (site, rule) pair and the later one overwrites keys of the
	// earlier one.
	DuplicateContext
	// DroppedValue is emitted when a context value cannot be serialized and
	// is omitted from output.
	DroppedValue
)

// String returns the warning kind as a short identifier.
func (k Kind) String() string {
	switch k {
	case DuplicateRoute:
		return "duplicate-route"
	case DuplicateExport:
		return "duplicate-export"
	case DuplicateContext:
		return "duplicate-context"
	case DroppedValue:
		return "dropped-value"
	default:
		return "unknown"
	}
}

// Warning is one observable diagnostic event.
type Warning struct {
	Kind   Kind
	Site   string
	Rule   string
	Module string
	Detail string
}

// String renders the warning for logs and CLI output.
func (w Warning) String() string {
	s := w.Kind.String()
	if w.Module != "" {
		s += " in " + w.Module
	}
	if w.Site != "" || w.Rule != "" {
		s += fmt.Sprintf(" (%s %s)", w.Site, w.Rule)
	}
	if w.Detail != "" {
		s += ": " + w.Detail
	}
	return s
}

// Collector accumulates warnings from concurrent producers.
type Collector struct {
	mu       sync.RWMutex
	warnings []Warning
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records a warning. A nil collector discards it, so producers do not
// need to guard every emit site.
func (c *Collector) Add(w Warning) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, w)
}

// Warnings returns a copy of all collected warnings.
func (c *Collector) Warnings() []Warning {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// ByKind returns collected warnings of one kind.
func (c *Collector) ByKind(k Kind) []Warning {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Warning
	for _, w := range c.warnings {
		if w.Kind == k {
			out = append(out, w)
		}
	}
	return out
}

// Len returns the number of collected warnings.
func (c *Collector) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.warnings)
}

// Clear discards all collected warnings.
func (c *Collector) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = c.warnings[:0]
}
