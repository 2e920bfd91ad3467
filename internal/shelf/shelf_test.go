package shelf

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashware/stash/internal/config"
	"github.com/stashware/stash/internal/diag"
	"github.com/stashware/stash/internal/routes"
)

// backends runs a subtest against every local backend, so the behavioral
// contract is asserted once and holds everywhere.
func backends(t *testing.T, fn func(t *testing.T, s Shelf)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		s := NewMemory(diag.NewCollector())
		defer s.Close()
		fn(t, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "shelf.db"), diag.NewCollector())
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
}

func TestShelf_PutGetRoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, s Shelf) {
		ctx := context.Background()
		in := routes.Context{
			"title": "Front Page",
			"tags":  []any{"a", "b"},
			"meta":  map[string]any{"k": "v"},
		}
		require.NoError(t, s.Put(ctx, "site", "/", in))

		out, err := s.Get(ctx, "site", "/")
		require.NoError(t, err)
		assert.Equal(t, "Front Page", out["title"])
		assert.Equal(t, []any{"a", "b"}, out["tags"])
		assert.Equal(t, map[string]any{"k": "v"}, out["meta"])
	})
}

func TestShelf_GetMiss(t *testing.T) {
	backends(t, func(t *testing.T, s Shelf) {
		ctx := context.Background()
		_, err := s.Get(ctx, "site", "/missing")
		assert.ErrorIs(t, err, ErrNotFound)

		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "site", nf.Site)
		assert.Equal(t, "/missing", nf.Rule)
	})
}

func TestShelf_PutOverwrites(t *testing.T) {
	backends(t, func(t *testing.T, s Shelf) {
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, "site", "/", routes.Context{"v": "old"}))
		require.NoError(t, s.Put(ctx, "site", "/", routes.Context{"v": "new"}))

		out, err := s.Get(ctx, "site", "/")
		require.NoError(t, err)
		assert.Equal(t, "new", out["v"])

		keys, err := s.List(ctx, "site", "")
		require.NoError(t, err)
		assert.Len(t, keys, 1)
	})
}

func TestShelf_ListOrderAndFilter(t *testing.T) {
	backends(t, func(t *testing.T, s Shelf) {
		ctx := context.Background()
		for _, rule := range []string{"/z", "/a", "/m"} {
			require.NoError(t, s.Put(ctx, "site", rule, routes.Context{}))
		}
		require.NoError(t, s.Put(ctx, "other", "/x", routes.Context{}))

		keys, err := s.List(ctx, "site", "")
		require.NoError(t, err)
		assert.Equal(t, []Key{
			{Site: "site", Rule: "/a"},
			{Site: "site", Rule: "/m"},
			{Site: "site", Rule: "/z"},
		}, keys)

		keys, err = s.List(ctx, "site", "/m")
		require.NoError(t, err)
		assert.Equal(t, []Key{{Site: "site", Rule: "/m"}}, keys)

		keys, err = s.List(ctx, "empty", "")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func TestShelf_Drop(t *testing.T) {
	backends(t, func(t *testing.T, s Shelf) {
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, "site", "/a", routes.Context{}))
		require.NoError(t, s.Put(ctx, "site", "/b", routes.Context{}))
		require.NoError(t, s.Put(ctx, "other", "/a", routes.Context{}))

		require.NoError(t, s.Drop(ctx, "site", "/a"))
		_, err := s.Get(ctx, "site", "/a")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Get(ctx, "site", "/b")
		assert.NoError(t, err)

		require.NoError(t, s.Drop(ctx, "site", ""))
		keys, err := s.List(ctx, "site", "")
		require.NoError(t, err)
		assert.Empty(t, keys)

		// Other sites are untouched.
		_, err = s.Get(ctx, "other", "/a")
		assert.NoError(t, err)
	})
}

func TestShelf_DropAbsentIsNoop(t *testing.T) {
	backends(t, func(t *testing.T, s Shelf) {
		assert.NoError(t, s.Drop(context.Background(), "site", "/nope"))
	})
}

func TestEncodeContext_DropsUnserializable(t *testing.T) {
	dc := diag.NewCollector()
	blob, err := encodeContext("site", "/", routes.Context{
		"title": "ok",
		"fn":    func() {},
	}, dc)
	require.NoError(t, err)

	out, err := decodeContext("site", "/", blob)
	require.NoError(t, err)
	assert.Equal(t, "ok", out["title"])
	assert.NotContains(t, out, "fn")

	dropped := dc.ByKind(diag.DroppedValue)
	require.Len(t, dropped, 1)
	assert.Contains(t, dropped[0].Detail, "fn")
}

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.ShelfConfig{Backend: "memory"}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, config.ShelfConfig{
		Backend: "sqlite",
		Path:    filepath.Join(t.TempDir(), "shelf.db"),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.ShelfConfig{Backend: "couch"}, nil)
	assert.Error(t, err)
}

func TestBundle_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := NewMemory(nil)
	require.NoError(t, src.Put(ctx, "site", "/", routes.Context{"title": "Front"}))
	require.NoError(t, src.Put(ctx, "site", "/news/", routes.Context{"title": "News"}))

	bundle, err := Export(ctx, src, "site", "", "content")
	require.NoError(t, err)
	assert.Equal(t, BundleFormatVersion, bundle.FormatVersion)
	assert.Equal(t, "site", bundle.Site)
	assert.Equal(t, "content", bundle.Module)
	require.Len(t, bundle.Entries, 2)

	data, err := EncodeBundle(bundle)
	require.NoError(t, err)
	decoded, err := DecodeBundle(data)
	require.NoError(t, err)

	dst := NewMemory(nil)
	require.NoError(t, Load(ctx, dst, decoded))

	out, err := dst.Get(ctx, "site", "/news/")
	require.NoError(t, err)
	assert.Equal(t, "News", out["title"])
}

func TestBundle_LoadRejectsUnknownVersion(t *testing.T) {
	err := Load(context.Background(), NewMemory(nil), &Bundle{FormatVersion: 99})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format version")
}

func TestBundle_ExportSingleRule(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(nil)
	require.NoError(t, s.Put(ctx, "site", "/a", routes.Context{}))
	require.NoError(t, s.Put(ctx, "site", "/b", routes.Context{}))

	bundle, err := Export(ctx, s, "site", "/b", "")
	require.NoError(t, err)
	require.Len(t, bundle.Entries, 1)
	assert.Equal(t, "/b", bundle.Entries[0].Rule)
}
