//go:build property
// +build property

package header

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// identifier generates plausible export and site names.
func identifier() gopter.Gen {
	return gen.RegexMatch(`[a-z][a-z0-9_]{0,11}`)
}

func TestHeaderProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every valid header parses with matching counts", prop.ForAll(
		func(site string, rules []string, exports []string) bool {
			if site == "" || len(rules) == 0 || len(exports) == 0 {
				return true
			}
			seenRule := map[string]bool{}
			seenExport := map[string]bool{}

			var b strings.Builder
			fmt.Fprintf(&b, "site: %s\nroutes:\n", site)
			uniqueRules := 0
			for _, r := range rules {
				fmt.Fprintf(&b, "  - /%s\n", r)
				if !seenRule[r] {
					seenRule[r] = true
					uniqueRules++
				}
			}
			b.WriteString("exports:\n")
			uniqueExports := 0
			for _, e := range exports {
				fmt.Fprintf(&b, "  - %s\n", e)
				if !seenExport[e] {
					seenExport[e] = true
					uniqueExports++
				}
			}

			h, err := NewParser(nil).Parse("m", b.String())
			if err != nil || h == nil {
				return false
			}
			return h.Site == site &&
				len(h.Routes) == uniqueRules &&
				len(h.Exports) == uniqueExports
		},
		identifier(),
		gen.SliceOf(identifier()),
		gen.SliceOf(identifier()),
	))

	properties.Property("static exports carry their literal, dynamic ones do not", prop.ForAll(
		func(name, value string) bool {
			if name == "" || value == "" {
				return true
			}
			switch value {
			case "true", "false", "null", "yes", "no", "on", "off":
				// YAML decodes these as non-strings; not interesting here.
				return true
			}
			src := fmt.Sprintf("site: s\nroutes: /\nexports:\n  - %s: %s\n", name, value)
			h, err := NewParser(nil).Parse("m", src)
			if err != nil || h == nil || len(h.Exports) != 1 {
				return false
			}
			e := h.Exports[0]
			return e.Static && e.Value == value && len(h.Static()) == 1
		},
		identifier(),
		identifier(),
	))

	properties.TestingRun(t)
}
