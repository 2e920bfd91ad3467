package stash

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModule(t *testing.T, root, rel, src string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
}

func TestDiscover_Order(t *testing.T) {
	root := t.TempDir()
	meta := "site: test\nroutes: /\nexports: title\n---\ntitle: x\n"
	writeModule(t, root, "zebra.yml", meta)
	writeModule(t, root, "index.yml", meta)
	writeModule(t, root, "apple.yml", meta)
	writeModule(t, root, "news/index.yml", meta)
	writeModule(t, root, "news/latest.yml", meta)
	writeModule(t, root, "archive/2020.yaml", meta)
	writeModule(t, root, ".hidden.yml", meta)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignore"), 0o644))

	d := NewDiscoverer(root, nil)
	modules, err := d.Discover(context.Background())
	require.NoError(t, err)

	base := filepath.Base(root)
	var names []string
	for _, m := range modules {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{
		base,
		base + ".apple",
		base + ".zebra",
		base + ".archive.2020",
		base + ".news",
		base + ".news.latest",
	}, names)
}

func TestDiscover_SkipsBrokenModule(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "good.yml", "site: test\nroutes: /\nexports: title\n---\ntitle: x\n")
	writeModule(t, root, "broken.yml", "site: test\n---\n- seq\nkey: [\n")

	d := NewDiscoverer(root, nil)
	modules, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, filepath.Base(root)+".good", modules[0].Name())
}

func TestDiscover_MissingRoot(t *testing.T) {
	d := NewDiscoverer(filepath.Join(t.TempDir(), "nope"), nil)
	_, err := d.Discover(context.Background())
	assert.Error(t, err)
}

func TestDiscover_RootIsFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "file.yml")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	d := NewDiscoverer(path, nil)
	_, err := d.Discover(context.Background())
	assert.Error(t, err)
}
