package models

import "encoding/json"

// SuccessEnvelope is the API response for an accepted submission. Extra holds
// values contributed by a pluggable success hook and is flattened by the
// response writer.
type SuccessEnvelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Extra   map[string]interface{} `json:"-"`
}

// NewSuccessEnvelope builds a success envelope with the given message.
func NewSuccessEnvelope(message string) *SuccessEnvelope {
	return &SuccessEnvelope{Success: true, Message: message}
}

// MarshalJSON flattens Extra into the top-level object. Reserved keys cannot
// be overridden by a hook.
func (e *SuccessEnvelope) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Extra)+2)
	for k, v := range e.Extra {
		out[k] = v
	}
	out["success"] = e.Success
	out["message"] = e.Message
	return json.Marshal(out)
}

// ErrorEnvelope is the API response for a rejected submission. At most one of
// Error, Errors, or RetryAfter is populated.
type ErrorEnvelope struct {
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	RetryAfter int               `json:"retryAfter,omitempty"` // seconds
}

// NewErrorEnvelope builds a single-message error envelope.
func NewErrorEnvelope(message string) *ErrorEnvelope {
	return &ErrorEnvelope{Error: message}
}

// NewFieldErrorEnvelope builds a field-error-map envelope.
func NewFieldErrorEnvelope(errs map[string]string) *ErrorEnvelope {
	return &ErrorEnvelope{Errors: errs}
}

// NewRetryAfterEnvelope builds a rate-limited envelope.
func NewRetryAfterEnvelope(message string, retryAfterSeconds int) *ErrorEnvelope {
	return &ErrorEnvelope{Error: message, RetryAfter: retryAfterSeconds}
}
