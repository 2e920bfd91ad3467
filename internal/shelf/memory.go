package shelf

import (
	"context"
	"sort"
	"sync"

	"github.com/stashware/stash/internal/diag"
	"github.com/stashware/stash/internal/routes"
)

// Memory is an in-process shelf backend. It stores the same serialized
// blobs the durable backends do, so round-trip behavior is identical.
// Used by tests and the "memory" backend setting.
type Memory struct {
	mu      sync.RWMutex
	entries map[Key][]byte
	diags   *diag.Collector
}

// NewMemory creates an empty in-memory shelf.
func NewMemory(dc *diag.Collector) *Memory {
	return &Memory{entries: make(map[Key][]byte), diags: dc}
}

// Get implements Shelf.
func (m *Memory) Get(_ context.Context, site, rule string) (routes.Context, error) {
	m.mu.RLock()
	blob, ok := m.entries[Key{Site: site, Rule: rule}]
	m.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Site: site, Rule: rule}
	}
	return decodeContext(site, rule, blob)
}

// Put implements Shelf.
func (m *Memory) Put(_ context.Context, site, rule string, v routes.Context) error {
	blob, err := encodeContext(site, rule, v, m.diags)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[Key{Site: site, Rule: rule}] = blob
	m.mu.Unlock()
	return nil
}

// List implements Shelf.
func (m *Memory) List(_ context.Context, site, rule string) ([]Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []Key
	for k := range m.entries {
		if k.Site != site {
			continue
		}
		if rule != "" && k.Rule != rule {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Rule < keys[j].Rule })
	return keys, nil
}

// Drop implements Shelf.
func (m *Memory) Drop(_ context.Context, site, rule string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rule != "" {
		delete(m.entries, Key{Site: site, Rule: rule})
		return nil
	}
	for k := range m.entries {
		if k.Site == site {
			delete(m.entries, k)
		}
	}
	return nil
}

// Close implements Shelf.
func (m *Memory) Close() error { return nil }
