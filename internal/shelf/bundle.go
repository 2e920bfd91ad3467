package shelf

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/stashware/stash/internal/routes"
)

// BundleFormatVersion is the current transfer bundle format.
const BundleFormatVersion = 1

// Bundle is the persisted transfer format for moving shelved data between
// stores and environments.
type Bundle struct {
	FormatVersion int           `json:"format_version"`
	Site          string        `json:"site"`
	Module        string        `json:"module,omitempty"`
	Entries       []BundleEntry `json:"entries"`
}

// BundleEntry is one shelved route in a bundle.
type BundleEntry struct {
	Rule    string         `json:"rule"`
	Context routes.Context `json:"context"`
}

// Export reads the site's entries (optionally filtered to one rule) from
// the shelf into a bundle.
func Export(ctx context.Context, s Shelf, site, rule, module string) (*Bundle, error) {
	keys, err := s.List(ctx, site, rule)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{FormatVersion: BundleFormatVersion, Site: site, Module: module}
	for _, k := range keys {
		v, err := s.Get(ctx, k.Site, k.Rule)
		if err != nil {
			return nil, err
		}
		bundle.Entries = append(bundle.Entries, BundleEntry{Rule: k.Rule, Context: v})
	}
	return bundle, nil
}

// Load pushes every bundle entry onto the shelf via repeated Put.
func Load(ctx context.Context, s Shelf, b *Bundle) error {
	if b.FormatVersion != BundleFormatVersion {
		return fmt.Errorf("shelf: unsupported bundle format version %d (want %d)",
			b.FormatVersion, BundleFormatVersion)
	}
	for _, entry := range b.Entries {
		if err := s.Put(ctx, b.Site, entry.Rule, entry.Context); err != nil {
			return err
		}
	}
	return nil
}

// EncodeBundle serializes a bundle for transfer.
func EncodeBundle(b *Bundle) ([]byte, error) {
	data, err := sonic.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("shelf: encoding bundle: %w", err)
	}
	return data, nil
}

// DecodeBundle parses a serialized bundle.
func DecodeBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := sonic.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("shelf: decoding bundle: %w", err)
	}
	return &b, nil
}
