package stash

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stashware/stash/internal/logging"
)

// indexName is the basename (without extension) of the file that carries
// a directory's own module, mirroring how a package root is itself a
// module.
const indexName = "index"

// Discoverer walks a content tree and yields every content module in
// deterministic depth-first order: each directory's index module first,
// then the remaining entries lexically.
type Discoverer struct {
	root   string
	logger logging.Logger
}

// NewDiscoverer creates a discoverer rooted at the content directory.
func NewDiscoverer(root string, logger logging.Logger) *Discoverer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Discoverer{root: root, logger: logger.WithComponent("discover")}
}

// Discover performs a single traversal of the content tree and returns
// the discovered modules. A module file that fails to load is logged and
// skipped, so one broken module never prevents the rest of a large site
// from building. A missing or unreadable root is an error.
func (d *Discoverer) Discover(ctx context.Context) ([]Module, error) {
	info, err := os.Stat(d.root)
	if err != nil {
		return nil, fmt.Errorf("content root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content root %s is not a directory", d.root)
	}

	var modules []Module
	if err := d.walk(ctx, d.root, &modules); err != nil {
		return nil, err
	}
	return modules, nil
}

func (d *Discoverer) walk(ctx context.Context, dir string, modules *[]Module) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading content directory %s: %w", dir, err)
	}

	var files, dirs []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if entry.IsDir() {
			dirs = append(dirs, name)
			continue
		}
		if isModuleFile(name) {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	sort.Strings(dirs)

	// The directory's own index module comes before its siblings and any
	// descendants.
	sort.SliceStable(files, func(i, j int) bool {
		return isIndexFile(files[i]) && !isIndexFile(files[j])
	})

	for _, name := range files {
		path := filepath.Join(dir, name)
		module, err := LoadFile(d.root, path)
		if err != nil {
			// Contained to this module; the rest of the tree still builds.
			d.logger.Warn(ctx, "skipping broken module", "path", path, "error", err.Error())
			continue
		}
		*modules = append(*modules, module)
	}

	for _, name := range dirs {
		if err := d.walk(ctx, filepath.Join(dir, name), modules); err != nil {
			return err
		}
	}
	return nil
}

func isModuleFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yml" || ext == ".yaml"
}

func isIndexFile(name string) bool {
	return strings.TrimSuffix(name, filepath.Ext(name)) == indexName
}
