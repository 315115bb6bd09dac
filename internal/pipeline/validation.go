package pipeline

import (
	"regexp"
	"strings"
)

// RequiredFields are the fields every submission must carry.
var RequiredFields = []string{"name", "email", "message"}

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateFields checks the sanitized field map against the built-in rules and
// returns one entry per failing field. Every missing field is reported, not
// just the first.
func ValidateFields(fields map[string]interface{}) map[string]string {
	errs := make(map[string]string)

	for _, field := range RequiredFields {
		value, ok := fields[field].(string)
		if !ok || strings.TrimSpace(value) == "" {
			errs[field] = "This field is required."
		}
	}

	if email, ok := fields["email"].(string); ok && email != "" {
		if !emailRegexp.MatchString(email) {
			errs["email"] = "Please enter a valid email address."
		}
	}

	return errs
}
