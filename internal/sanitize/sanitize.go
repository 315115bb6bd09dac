// Package sanitize normalizes inbound form payloads before validation.
//
// Markup is stripped with bluemonday's strict policy, control characters are
// removed, and surrounding whitespace is trimmed. A payload that is not a
// string-keyed map at all is reported as unsanitizable, which callers turn
// into a 400-class response rather than a field error.
package sanitize

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer cleans arbitrary string-keyed field maps.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func New() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize returns the cleaned field map. ok is false when raw is not a
// string-keyed map, which is an unrecoverable shape failure distinct from any
// field-level validation error.
func (s *Sanitizer) Sanitize(raw interface{}) (map[string]interface{}, bool) {
	fields, ok := raw.(map[string]interface{})
	if !ok {
		return nil, false
	}

	clean := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		clean[key] = s.sanitizeValue(value)
	}
	return clean, true
}

func (s *Sanitizer) sanitizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return s.CleanString(v)
	case map[string]interface{}:
		nested := make(map[string]interface{}, len(v))
		for key, inner := range v {
			nested[key] = s.sanitizeValue(inner)
		}
		return nested
	case []interface{}:
		items := make([]interface{}, len(v))
		for i, inner := range v {
			items[i] = s.sanitizeValue(inner)
		}
		return items
	default:
		// Numbers, booleans, and nulls carry no markup.
		return v
	}
}

// CleanString strips markup and control characters from one value and trims
// surrounding whitespace.
func (s *Sanitizer) CleanString(value string) string {
	stripped := s.policy.Sanitize(value)
	stripped = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, stripped)
	return strings.TrimSpace(stripped)
}
