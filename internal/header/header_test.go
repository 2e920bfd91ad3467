package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashware/stash/internal/diag"
)

func TestParse_NoMetadata(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"whitespace", "  \n\t\n"},
		{"plain prose", "This module renders the front page."},
		{"scalar document", "42"},
		{"sequence document", "- one\n- two\n"},
	}

	parser := NewParser(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := parser.Parse("content.index", tt.src)
			require.NoError(t, err)
			assert.Nil(t, h)
		})
	}
}

func TestParse_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing site", "routes: /\nexports: title\n"},
		{"missing routes", "site: test\nexports: title\n"},
		{"missing exports", "site: test\nroutes: /\n"},
		{"empty routes", "site: test\nroutes: []\nexports: title\n"},
		{"bad routes kind", "site: test\nroutes: {a: b, c: d}\nexports: title\n"},
	}

	parser := NewParser(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := parser.Parse("content.index", tt.src)
			assert.Nil(t, h)
			var herr *Error
			require.ErrorAs(t, err, &herr)
			assert.Equal(t, "content.index", herr.Module)
		})
	}
}

func TestParse_UnparsableMetadata(t *testing.T) {
	parser := NewParser(nil)
	h, err := parser.Parse("content.broken", "site: [unclosed\nroutes: /\n")
	assert.Nil(t, h)
	var herr *Error
	require.ErrorAs(t, err, &herr)
}

func TestParse_ScalarNormalization(t *testing.T) {
	parser := NewParser(nil)
	h, err := parser.Parse("content.index", "site: test\nroutes: /\nexports: title\n")
	require.NoError(t, err)
	require.NotNil(t, h)

	assert.Equal(t, "test", h.Site)
	require.Len(t, h.Routes, 1)
	assert.Equal(t, RouteDecl{Rule: "/"}, h.Routes[0])
	require.Len(t, h.Exports, 1)
	assert.Equal(t, Export{Name: "title"}, h.Exports[0])
}

func TestParse_ExportShapes(t *testing.T) {
	src := `site: test
routes:
  - /route1
  - /route2
exports:
  - count <- number
  - name <- string
  - sequence <- [number]
  - title: Tango
`
	parser := NewParser(nil)
	h, err := parser.Parse("content.multiple", src)
	require.NoError(t, err)

	assert.Equal(t, []RouteDecl{{Rule: "/route1"}, {Rule: "/route2"}}, h.Routes)
	require.Len(t, h.Exports, 4)
	assert.Equal(t, Export{Name: "count", Hint: "number"}, h.Exports[0])
	assert.Equal(t, Export{Name: "name", Hint: "string"}, h.Exports[1])
	assert.Equal(t, Export{Name: "sequence", Hint: "[number]"}, h.Exports[2])
	assert.Equal(t, Export{Name: "title", Static: true, Value: "Tango"}, h.Exports[3])
	assert.Equal(t, []string{"title"}, h.Static())
}

func TestParse_StaticStructuredValue(t *testing.T) {
	src := `site: test
routes: /
exports:
  - nav:
      - home
      - about
`
	parser := NewParser(nil)
	h, err := parser.Parse("content.index", src)
	require.NoError(t, err)

	require.Len(t, h.Exports, 1)
	assert.True(t, h.Exports[0].Static)
	assert.Equal(t, []any{"home", "about"}, h.Exports[0].Value)
}

func TestParse_WriterBoundRoute(t *testing.T) {
	src := `site: test
routes:
  - template:index.html: /
  - json: /api/front
  - /plain
exports: title
`
	parser := NewParser(nil)
	h, err := parser.Parse("content.index", src)
	require.NoError(t, err)

	require.Len(t, h.Routes, 3)
	assert.Equal(t, RouteDecl{Writer: "template:index.html", Rule: "/"}, h.Routes[0])
	assert.Equal(t, RouteDecl{Writer: "json", Rule: "/api/front"}, h.Routes[1])
	assert.Equal(t, RouteDecl{Rule: "/plain"}, h.Routes[2])
}

func TestParse_RoutingBindingsOrdered(t *testing.T) {
	src := `site: test
routes:
  - /routing/<parameter>/
  - /another/<argument>/
exports:
  - purpose: testing
routing:
  - parameter: parameters
  - argument: arguments
`
	parser := NewParser(nil)
	h, err := parser.Parse("content.routing", src)
	require.NoError(t, err)

	assert.Equal(t, []Binding{
		{Parameter: "parameter", Symbol: "parameters"},
		{Parameter: "argument", Symbol: "arguments"},
	}, h.Routing)
}

func TestParse_DuplicateDeclarationsWarn(t *testing.T) {
	src := `site: test
routes:
  - /
  - /
exports:
  - title
  - title: Later
`
	dc := diag.NewCollector()
	parser := NewParser(dc)
	h, err := parser.Parse("content.dup", src)
	require.NoError(t, err)

	require.Len(t, h.Routes, 1)
	require.Len(t, h.Exports, 1)
	// The later declaration wins.
	assert.True(t, h.Exports[0].Static)
	assert.Equal(t, "Later", h.Exports[0].Value)

	assert.Len(t, dc.ByKind(diag.DuplicateRoute), 1)
	assert.Len(t, dc.ByKind(diag.DuplicateExport), 1)
}

func TestParse_HintDelimiterInHint(t *testing.T) {
	parser := NewParser(nil)
	h, err := parser.Parse("m", "site: s\nroutes: /\nexports: 'field <- a <- b'\n")
	require.NoError(t, err)
	require.Len(t, h.Exports, 1)
	assert.Equal(t, "field", h.Exports[0].Name)
	assert.Equal(t, "a <- b", h.Exports[0].Hint)
}
