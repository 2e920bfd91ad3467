package shelf

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/stashware/stash/internal/diag"
	"github.com/stashware/stash/internal/routes"
)

// encodeContext serializes a context to the opaque blob a backend stores.
// Values that cannot be serialized are dropped, each with one warning, so
// a single odd value never blocks shelving the rest of the route.
func encodeContext(site, rule string, v routes.Context, dc *diag.Collector) ([]byte, error) {
	trimmed := make(map[string]any, len(v))
	for key, value := range v {
		if _, err := sonic.Marshal(value); err != nil {
			dc.Add(diag.Warning{
				Kind: diag.DroppedValue, Site: site, Rule: rule,
				Detail: fmt.Sprintf("context key %q is not serializable", key),
			})
			continue
		}
		trimmed[key] = value
	}
	blob, err := sonic.Marshal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("shelf: encoding context for (%s, %s): %w", site, rule, err)
	}
	return blob, nil
}

func decodeContext(site, rule string, blob []byte) (routes.Context, error) {
	var v routes.Context
	if err := sonic.Unmarshal(blob, &v); err != nil {
		return nil, fmt.Errorf("shelf: decoding context for (%s, %s): %w", site, rule, err)
	}
	return v, nil
}
