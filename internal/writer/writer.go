// Package writer renders a shelved context plus a request into a
// response body. Writers are not view functions: the view of the data was
// already computed in the stash, so a writer only serializes the
// pre-processed context it is handed.
package writer

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/stashware/stash/internal/config"
	"github.com/stashware/stash/internal/diag"
	"github.com/stashware/stash/internal/routes"
)

// TemplatePrefix marks writer names that are backed by a named template.
const TemplatePrefix = "template:"

// Writer renders a context into a response body and content type.
type Writer interface {
	Write(r *http.Request, ctx routes.Context) (body []byte, contentType string, err error)
}

// NoSuchWriterError reports a request for a writer name that is not
// registered and matches no template convention.
type NoSuchWriterError struct {
	Name string
}

func (e *NoSuchWriterError) Error() string {
	return fmt.Sprintf("writer: no writer registered under %q", e.Name)
}

// Registry maps symbolic writer names to writers. It is constructed once
// per application; the default writer slot is deferred and populated from
// configuration on first access, and template-backed writers are
// instantiated lazily and cached for the application's lifetime.
type Registry struct {
	mu          sync.RWMutex
	writers     map[string]Writer
	defaultName string
	defaultW    Writer
	templates   string
}

// NewRegistry creates a registry with the built-in writers registered.
// Template-backed writers load from the templates directory.
func NewRegistry(cfg config.WritersConfig, templates string, dc *diag.Collector) *Registry {
	r := &Registry{
		writers:     make(map[string]Writer),
		defaultName: cfg.Default,
		templates:   templates,
	}
	r.Register("text", &TextWriter{})
	r.Register("json", NewJSONWriter(cfg, dc))
	return r
}

// Register adds or replaces a writer under a name.
func (r *Registry) Register(name string, w Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writers[name] = w
}

// Resolve returns the writer for a symbolic name. An empty name resolves
// the configured default. A name with the "template:" prefix lazily
// instantiates a writer bound to the remainder as a template identifier.
// Any other unregistered name fails with *NoSuchWriterError.
func (r *Registry) Resolve(name string) (Writer, error) {
	if name == "" {
		return r.resolveDefault()
	}

	r.mu.RLock()
	w, ok := r.writers[name]
	r.mu.RUnlock()
	if ok {
		return w, nil
	}

	if template, ok := strings.CutPrefix(name, TemplatePrefix); ok {
		tw, err := NewTemplateWriter(r.templates, template)
		if err != nil {
			return nil, err
		}
		r.Register(name, tw)
		return tw, nil
	}

	return nil, &NoSuchWriterError{Name: name}
}

// resolveDefault populates the deferred default slot on first access.
// The default is configured by name so it can point at any registered
// writer, templates included.
func (r *Registry) resolveDefault() (Writer, error) {
	r.mu.RLock()
	w := r.defaultW
	r.mu.RUnlock()
	if w != nil {
		return w, nil
	}

	name := r.defaultName
	if name == "" {
		name = "text"
	}
	w, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.defaultW = w
	r.mu.Unlock()
	return w, nil
}
