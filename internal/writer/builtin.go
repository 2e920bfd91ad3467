package writer

import (
	"bytes"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"

	"github.com/stashware/stash/internal/config"
	"github.com/stashware/stash/internal/diag"
	"github.com/stashware/stash/internal/routes"
)

// TextWriter renders a context as its plain string representation.
type TextWriter struct{}

// Write implements Writer.
func (w *TextWriter) Write(_ *http.Request, ctx routes.Context) ([]byte, string, error) {
	return fmt.Appendf(nil, "%v", map[string]any(ctx)), "text/plain; charset=utf-8", nil
}

// JSONWriter renders a context as JSON. Context keys whose values cannot
// be serialized are dropped, with one warning per dropped key, and
// date/datetime values are formatted per configuration before encoding.
type JSONWriter struct {
	dateFormat     string
	datetimeFormat string
	diags          *diag.Collector
}

// NewJSONWriter creates a JSON writer with the configured date formats.
// Empty formats mean RFC 3339.
func NewJSONWriter(cfg config.WritersConfig, dc *diag.Collector) *JSONWriter {
	return &JSONWriter{
		dateFormat:     cfg.DateFormat,
		datetimeFormat: cfg.DatetimeFormat,
		diags:          dc,
	}
}

// Write implements Writer.
func (w *JSONWriter) Write(_ *http.Request, ctx routes.Context) ([]byte, string, error) {
	trimmed := make(map[string]any, len(ctx))
	for key, value := range ctx {
		value = w.formatTimes(value)
		if _, err := sonic.Marshal(value); err != nil {
			w.diags.Add(diag.Warning{
				Kind:   diag.DroppedValue,
				Detail: fmt.Sprintf("context key %q is not serializable", key),
			})
			continue
		}
		trimmed[key] = value
	}
	body, err := sonic.Marshal(trimmed)
	if err != nil {
		return nil, "", fmt.Errorf("writer: encoding context: %w", err)
	}
	return body, "application/json", nil
}

// formatTimes rewrites time values to their configured string form,
// recursing into sequences and mappings. A timestamp at midnight renders
// with the date format, everything else with the datetime format.
func (w *JSONWriter) formatTimes(v any) any {
	switch t := v.(type) {
	case time.Time:
		if isDateOnly(t) {
			return t.Format(w.format(w.dateFormat, "2006-01-02"))
		}
		return t.Format(w.format(w.datetimeFormat, time.RFC3339))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = w.formatTimes(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = w.formatTimes(e)
		}
		return out
	default:
		return v
	}
}

func (w *JSONWriter) format(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

func isDateOnly(t time.Time) bool {
	hour, minute, sec := t.Clock()
	return hour == 0 && minute == 0 && sec == 0 && t.Nanosecond() == 0
}

// TemplateWriter renders a context through a named template loaded from
// the templates directory. One instance exists per template name, created
// on first request for that name and cached in the registry.
type TemplateWriter struct {
	tmpl        *template.Template
	contentType string
}

// NewTemplateWriter loads the named template from dir. The content type
// is guessed from the template's extension, defaulting to HTML.
func NewTemplateWriter(dir, name string) (*TemplateWriter, error) {
	tmpl, err := template.ParseFiles(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("writer: loading template %q: %w", name, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "text/html; charset=utf-8"
	}

	return &TemplateWriter{tmpl: tmpl, contentType: contentType}, nil
}

// Write implements Writer.
func (w *TemplateWriter) Write(_ *http.Request, ctx routes.Context) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := w.tmpl.Execute(&buf, map[string]any(ctx)); err != nil {
		return nil, "", fmt.Errorf("writer: rendering template: %w", err)
	}
	return buf.Bytes(), w.contentType, nil
}
