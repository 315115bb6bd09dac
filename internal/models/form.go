package models

// FormErrorKey is the reserved key under which whole-form failures are
// reported, as opposed to per-field validation failures.
const FormErrorKey = "_form"

// FormState carries the render state of a contact form for one request.
// It is created fresh per request and never shared across requests.
type FormState struct {
	Data        map[string]interface{} `json:"data"`
	Errors      map[string]string      `json:"errors"`
	IsSubmitted bool                   `json:"isSubmitted"`
	Validator   string                 `json:"validator,omitempty"`
}

// NewFormState returns an empty, unsubmitted form state.
func NewFormState() *FormState {
	return &FormState{
		Data:   make(map[string]interface{}),
		Errors: make(map[string]string),
	}
}

// FailedFormState preserves the posted fields alongside the produced errors so
// the caller can re-render without data loss.
func FailedFormState(data map[string]interface{}, errs map[string]string) *FormState {
	if data == nil {
		data = make(map[string]interface{})
	}
	if errs == nil {
		errs = make(map[string]string)
	}
	return &FormState{Data: data, Errors: errs}
}

// SubmissionRecord is the sanitized field map handed to the domain submission
// handler, with the resolved category injected under the "category" key. It is
// never persisted by the gateway.
type SubmissionRecord map[string]interface{}

// NewSubmissionRecord copies the sanitized fields and injects the category.
func NewSubmissionRecord(fields map[string]interface{}, category string) SubmissionRecord {
	record := make(SubmissionRecord, len(fields)+1)
	for k, v := range fields {
		record[k] = v
	}
	record["category"] = category
	return record
}

// Category returns the injected category slug.
func (r SubmissionRecord) Category() string {
	if v, ok := r["category"].(string); ok {
		return v
	}
	return ""
}
