// Package pipeline runs the staged checks for a direct API form submission.
//
// Stages execute strictly in order and short-circuit on the first failure:
// rate limit, forgery token, payload parse, sanitization, optional bot-score
// verification, field validation, custom validation, then the success path
// (hook, best-effort notification dispatch, envelope). A panic anywhere is
// converted to a generic 500 at the outer boundary.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"contact-gateway/internal/common/errors"
	"contact-gateway/internal/common/logger"
	"contact-gateway/internal/common/metrics"
	"contact-gateway/internal/models"
	"contact-gateway/internal/ratelimit"
)

// scope identifies this endpoint's buckets in the shared rate-limit store.
const rateLimitScope = "submit"

// RateLimiter is the slice of the limiter the pipeline needs.
type RateLimiter interface {
	Check(ctx context.Context, identifier, scope string) (ratelimit.Decision, error)
}

// TokenValidator validates a session-bound forgery token.
type TokenValidator interface {
	ValidateRequest(ctx context.Context, sessionID, presented string) bool
}

// PayloadSanitizer normalizes the decoded payload; ok=false signals an
// unrecoverable shape failure.
type PayloadSanitizer interface {
	Sanitize(raw interface{}) (map[string]interface{}, bool)
}

// BotVerifier scores a client-supplied token; callers skip it when the
// submission has no token.
type BotVerifier interface {
	Verify(ctx context.Context, token string) bool
}

// Notifier dispatches a best-effort notification about an accepted submission.
type Notifier interface {
	Dispatch(ctx context.Context, record models.SubmissionRecord)
}

// Result is the pipeline's HTTP-shaped outcome: a status plus exactly one of
// the two envelopes.
type Result struct {
	Status  int
	Success *models.SuccessEnvelope
	Error   *models.ErrorEnvelope
}

func errorResult(status int, envelope *models.ErrorEnvelope) Result {
	return Result{Status: status, Error: envelope}
}

// Pipeline orchestrates the submission stages.
type Pipeline struct {
	limiter         RateLimiter
	guard           TokenValidator
	sanitizer       PayloadSanitizer
	verifier        BotVerifier
	notifier        Notifier
	hooks           Hooks
	defaultCategory string
	logger          logger.Logger
}

func New(
	limiter RateLimiter,
	guard TokenValidator,
	sanitizer PayloadSanitizer,
	verifier BotVerifier,
	notifier Notifier,
	hooks Hooks,
	defaultCategory string,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		limiter:         limiter,
		guard:           guard,
		sanitizer:       sanitizer,
		verifier:        verifier,
		notifier:        notifier,
		hooks:           hooks,
		defaultCategory: defaultCategory,
		logger:          log,
	}
}

// Process runs every stage for one request. It never panics: unexpected
// failures become a generic 500 envelope with the detail kept server-side.
func (p *Pipeline) Process(ctx context.Context, req Request) (result Result) {
	started := time.Now()
	category := p.defaultCategory

	defer func() {
		if rec := recover(); rec != nil {
			stdErr := errors.NewUnexpectedError(fmt.Errorf("panic: %v", rec))
			p.logger.Error("submission pipeline panic", map[string]interface{}{
				"code":  string(stdErr.Code),
				"panic": stdErr.Details,
			})
			result = errorResult(errors.HTTPStatus(stdErr.Code),
				models.NewErrorEnvelope(stdErr.Message))
		}

		outcome := "error"
		if result.Success != nil {
			outcome = "success"
		}
		metrics.SubmissionsProcessed.WithLabelValues(category, outcome).Inc()
		metrics.SubmissionDuration.WithLabelValues(category).Observe(time.Since(started).Seconds())
	}()

	// Stage 1: rate limit. Store failures deny as well.
	decision, err := p.limiter.Check(ctx, req.Identifier, rateLimitScope)
	if err != nil || !decision.Allowed {
		stdErr := errors.NewRateLimitExceededError(decision.RetryAfter)
		if err != nil {
			stdErr.Details = err.Error()
		}
		return p.reject("rate_limit", stdErr,
			models.NewRetryAfterEnvelope(stdErr.Message, int(decision.RetryAfter.Seconds())))
	}

	// Stage 2: forgery token.
	if !p.guard.ValidateRequest(ctx, req.SessionID, req.ForgeryToken) {
		stdErr := errors.NewSecurityTokenInvalidError("token missing, expired or bound to another session")
		return p.reject("forgery", stdErr, models.NewErrorEnvelope(stdErr.Message))
	}

	// Stage 3: payload parse.
	var raw interface{}
	if err := json.Unmarshal(req.Body, &raw); err != nil {
		return p.reject("parse", errors.NewPayloadMalformedError(err.Error()),
			models.NewErrorEnvelope("Request body is not valid JSON."))
	}

	// Stage 4: sanitization. A shape failure is not a field error.
	fields, ok := p.sanitizer.Sanitize(raw)
	if !ok {
		return p.reject("sanitize", errors.NewPayloadMalformedError("payload is not a field object"),
			models.NewErrorEnvelope("Request body must be a JSON object of form fields."))
	}

	if slug, ok := fields[FieldCategory].(string); ok && slug != "" {
		category = slug
	}

	// Stage 5: bot-score verification, opt-in per submission.
	if token, ok := fields[FieldBotToken].(string); ok && token != "" {
		if !p.verifier.Verify(ctx, token) {
			stdErr := errors.NewBotVerificationFailedError("score below threshold or verification unavailable")
			return p.reject("bot_check", stdErr, models.NewErrorEnvelope(errors.MsgBotVerification))
		}
		delete(fields, FieldBotToken)
	}

	// Stage 6: built-in field validation.
	fieldErrs := ValidateFields(fields)

	// Stage 7: pluggable custom validation merges into the same map.
	if p.hooks.CustomValidator != nil {
		for field, msg := range p.safeCustomValidate(fields) {
			fieldErrs[field] = msg
		}
	}
	if len(fieldErrs) > 0 {
		stdErr := errors.NewValidationFailedError(fmt.Sprintf("%d field(s) rejected", len(fieldErrs)))
		return p.reject("validation", stdErr, models.NewFieldErrorEnvelope(fieldErrs))
	}

	record := models.NewSubmissionRecord(fields, category)
	envelope := models.NewSuccessEnvelope("Thank you for your message. We will get back to you soon.")

	// Stage 8: success hook, isolated from the request outcome.
	if p.hooks.SuccessHook != nil {
		if extra := p.safeSuccessHook(ctx, record); extra != nil {
			envelope.Extra = extra
		}
	}

	// Stage 9: best-effort notification dispatch. Failures are logged inside
	// the notifier and never alter the response.
	p.notifier.Dispatch(ctx, record)

	// Stage 10: success envelope.
	return Result{Status: http.StatusOK, Success: envelope}
}

// reject short-circuits the pipeline at a stage. The typed error drives the
// metric, the log entry and the HTTP status; only the envelope reaches the
// client.
func (p *Pipeline) reject(stage string, stdErr *errors.StandardError, envelope *models.ErrorEnvelope) Result {
	metrics.SubmissionsRejected.WithLabelValues(stage).Inc()
	p.logger.Warn("submission rejected", map[string]interface{}{
		"stage":    stage,
		"code":     string(stdErr.Code),
		"category": errors.GetErrorCategory(stdErr.Code),
		"detail":   stdErr.Details,
	})
	return errorResult(errors.HTTPStatus(stdErr.Code), envelope)
}

func (p *Pipeline) safeCustomValidate(fields map[string]interface{}) (errs map[string]string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("custom validator panic, ignoring its result", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
			errs = nil
		}
	}()
	return p.hooks.CustomValidator(fields)
}

func (p *Pipeline) safeSuccessHook(ctx context.Context, record models.SubmissionRecord) (extra map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("success hook panic, falling back to default response", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
			extra = nil
		}
	}()

	result, err := p.hooks.SuccessHook(ctx, record)
	if err != nil {
		p.logger.Error("success hook failed, falling back to default response", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return result
}
