package pipeline

import "context"

// Request is one inbound API-style submission, already lifted out of the HTTP
// layer: the raw JSON body plus the identity material the security stages need.
type Request struct {
	// Identifier keys rate-limit buckets; the HTTP adapter uses the client IP.
	Identifier string
	// SessionID and ForgeryToken feed the forgery check.
	SessionID    string
	ForgeryToken string
	// Body is the raw request payload.
	Body []byte
}

// Hooks are the pluggable extension points of the pipeline. Both are optional.
type Hooks struct {
	// CustomValidator runs after the built-in field validation; returned
	// entries merge into the same field-error map.
	CustomValidator func(fields map[string]interface{}) map[string]string
	// SuccessHook runs after validation passes. A returned map extends the
	// success envelope. An error or panic here is logged and the default
	// success path is taken; it can never fail the request.
	SuccessHook func(ctx context.Context, record map[string]interface{}) (map[string]interface{}, error)
}

// Field names with special meaning in the inbound payload.
const (
	FieldCategory = "category"
	FieldBotToken = "botVerificationToken"
)
