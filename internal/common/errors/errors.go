// Package errors provides standardized error handling for the contact gateway.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodePayloadMalformed ErrorCode = "PAYLOAD_MALFORMED"

	ErrCodeSecurityTokenInvalid  ErrorCode = "SECURITY_TOKEN_INVALID"
	ErrCodeBotVerificationFailed ErrorCode = "BOT_VERIFICATION_FAILED"

	ErrCodeRateLimitExceeded         ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeRateLimitStoreUnreachable ErrorCode = "RATE_LIMIT_STORE_UNREACHABLE"

	ErrCodeCategoryNotFound ErrorCode = "CATEGORY_NOT_FOUND"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeUnexpected ErrorCode = "UNEXPECTED_ERROR"
)

// BotVerificationMarker is the substring a domain handler error carries when a
// submission was rejected by bot-score verification. The category router keys
// its user-facing message off this marker.
const BotVerificationMarker = string(ErrCodeBotVerificationFailed)

// User-facing messages. These are what clients see; internal detail stays in logs.
const (
	MsgInvalidSecurityToken = "Invalid security token. Please try again."
	MsgBotVerification      = "We could not verify that you are human. Please try again."
	MsgRateLimited          = "Too many requests. Please try again later."
	MsgGenericFailure       = "Something went wrong while submitting the form. Please try again."
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationFailedError creates a non-retryable field validation error.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Submitted form data failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayloadMalformedError creates a non-retryable malformed payload error.
func NewPayloadMalformedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadMalformed,
		Message:   "Request payload is not a valid form submission",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSecurityTokenInvalidError creates a non-retryable forgery token error.
func NewSecurityTokenInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSecurityTokenInvalid,
		Message:   MsgInvalidSecurityToken,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBotVerificationFailedError creates a non-retryable bot-score error.
func NewBotVerificationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBotVerificationFailed,
		Message:   "Bot-score verification rejected the submission",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitExceededError creates a retryable rate limit error. retryAfter is
// carried in metadata so response writers can surface it.
func NewRateLimitExceededError(retryAfter time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimitExceeded,
		Message:   MsgRateLimited,
		Retryable: true,
		Metadata:  map[string]interface{}{"retryAfterSeconds": int(retryAfter.Seconds())},
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitStoreUnreachableError creates a retryable backing store error.
// Callers must treat this as a denial, never as an allowance.
func NewRateLimitStoreUnreachableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimitStoreUnreachable,
		Message:   "Rate limit store unreachable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCategoryNotFoundError creates a non-retryable unknown category error.
func NewCategoryNotFoundError(slug string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCategoryNotFound,
		Message:   "Unknown contact category",
		Details:   fmt.Sprintf("slug: %s", slug),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnexpectedError wraps an unclassified failure. The details are for server
// logs only and must never be echoed to the client.
func NewUnexpectedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnexpected,
		Message:   MsgGenericFailure,
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// HTTPStatus maps an error code to the HTTP status used by the API surface.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodePayloadMalformed, ErrCodeBotVerificationFailed:
		return http.StatusBadRequest
	case ErrCodeSecurityTokenInvalid:
		return http.StatusForbidden
	case ErrCodeCategoryNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimitExceeded, ErrCodeRateLimitStoreUnreachable:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// IsBotVerificationFailure reports whether an error originated from bot-score
// verification, either as a typed StandardError or by carrying the marker in
// its message (domain handlers are free to return plain errors).
func IsBotVerificationFailure(err error) bool {
	if err == nil {
		return false
	}
	var stdErr *StandardError
	if errors.As(err, &stdErr) && stdErr.Code == ErrCodeBotVerificationFailed {
		return true
	}
	return strings.Contains(err.Error(), BotVerificationMarker)
}

// GetErrorCategory returns the coarse category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "PAYLOAD"):
		return "VALIDATION"
	case strings.Contains(codeStr, "SECURITY") || strings.Contains(codeStr, "BOT"):
		return "SECURITY"
	case strings.Contains(codeStr, "RATE_LIMIT"):
		return "RATE_LIMIT"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
