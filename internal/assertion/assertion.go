// Package assertion models the attribute set asserted by the identity
// provider for one sign-in. The SAML protocol layer has already verified
// signatures and trust before an Assertion reaches this service.
package assertion

import (
	"encoding/json"
	"fmt"
)

// Assertion maps attribute names to their asserted values. SAML attributes
// are multi-valued on the wire; most consumers only care about the first.
type Assertion map[string][]string

// Get returns the first value for key, or "" when the attribute is absent
// or has no values.
func (a Assertion) Get(key string) string {
	vals, ok := a[key]
	if !ok || len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// Has reports whether the attribute is present at all, independent of
// whether its first value is empty. Absent and present-but-empty are
// distinct states; callers that skip empty values still want to know
// the attribute was asserted.
func (a Assertion) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Values returns all values for key, or nil when absent.
func (a Assertion) Values(key string) []string {
	return a[key]
}

// UnmarshalJSON accepts both "attr": "value" and "attr": ["v1", "v2"]
// forms, normalizing to the multi-valued representation.
func (a *Assertion) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Assertion, len(raw))
	for key, msg := range raw {
		var single string
		if err := json.Unmarshal(msg, &single); err == nil {
			out[key] = []string{single}
			continue
		}
		var many []string
		if err := json.Unmarshal(msg, &many); err != nil {
			return fmt.Errorf("assertion attribute %q: expected string or string list", key)
		}
		out[key] = many
	}
	*a = out
	return nil
}
