// Package router maps URL category slugs to form configuration and drives the
// render/submit lifecycle of the server-rendered contact form.
package router

import (
	"context"
	"fmt"
	"net/url"

	"contact-gateway/internal/common/config"
	"contact-gateway/internal/common/errors"
	"contact-gateway/internal/common/logger"
	"contact-gateway/internal/models"
)

// SubmissionHandler is the domain handler a factory hook produces. It receives
// the sanitized record with the category already injected.
type SubmissionHandler func(ctx context.Context, record models.SubmissionRecord, category config.CategoryConfig) error

// Hooks are the router's pluggable strategies. All are optional.
type Hooks struct {
	// ValidatorLookup names the client-side validator for a category.
	ValidatorLookup func(slug string) string
	// FormParser replaces the default posted-field decoding. Returned errors
	// abort the submission before the domain handler runs.
	FormParser func(posted url.Values) (map[string]interface{}, map[string]string)
	// HandlerFactory binds the domain handler to request-scoped context.
	HandlerFactory func(ctx context.Context) SubmissionHandler
	// ErrorHandler may translate a handler failure into a custom outcome; a
	// nil return falls back to the generic failure.
	ErrorHandler func(err error, form *models.FormState, slug string) *Outcome
}

// TokenValidator validates the forgery token of a mutating request.
type TokenValidator interface {
	ValidateRequest(ctx context.Context, sessionID, presented string) bool
}

// SubmitRequest is one form-action submission, lifted out of the HTTP layer.
type SubmitRequest struct {
	Slug         string
	SessionID    string
	ForgeryToken string
	PostedFields url.Values
}

// Router resolves category slugs and runs the submit state machine.
type Router struct {
	forms  config.FormsConfig
	guard  TokenValidator
	hooks  Hooks
	logger logger.Logger
}

func New(forms config.FormsConfig, guard TokenValidator, hooks Hooks, log logger.Logger) *Router {
	for _, canonical := range forms.DuplicateCanonicalSlugs() {
		log.Warn("multiple categories share a canonical slug; alias lookup order is undefined", map[string]interface{}{
			"canonicalSlug": canonical,
		})
	}

	return &Router{
		forms:  forms,
		guard:  guard,
		hooks:  hooks,
		logger: log,
	}
}

// Load resolves a category-bearing page request into its initial render state.
func (r *Router) Load(_ context.Context, slug string, query url.Values) Outcome {
	if slug == r.forms.SuccessPath {
		category := query.Get("category")
		if category == "" {
			category = r.forms.DefaultCategory
		}
		return ThankYou(category)
	}

	if category, ok := r.forms.Categories[slug]; ok {
		form := models.NewFormState()
		if r.hooks.ValidatorLookup != nil {
			form.Validator = r.hooks.ValidatorLookup(slug)
		}
		return Loaded(form, slug, category)
	}

	// No direct match: try the label-derived alias and redirect to the
	// canonical slug. Order between colliding labels is undefined.
	for key, category := range r.forms.Categories {
		if config.CanonicalSlug(category.Label) == slug {
			return PermanentRedirect(r.CategoryPath(key))
		}
	}

	return NotFound()
}

// HandleSubmission runs the submit state machine: forgery check, field
// decoding, category injection, domain handler, then a redirect on success or
// a preserved-data failure otherwise.
func (r *Router) HandleSubmission(ctx context.Context, req SubmitRequest) Outcome {
	// Forgery validation comes before anything else, including slug resolution.
	if !r.guard.ValidateRequest(ctx, req.SessionID, req.ForgeryToken) {
		r.logger.Warn("form submission rejected: invalid forgery token", map[string]interface{}{
			"slug": req.Slug,
		})
		return Failed(models.FailedFormState(valuesToMap(req.PostedFields), map[string]string{
			models.FormErrorKey: errors.MsgInvalidSecurityToken,
		}))
	}

	category, ok := r.forms.Categories[req.Slug]
	if !ok {
		return NotFound()
	}

	data, fieldErrs := r.decodeFields(req.PostedFields)
	if len(fieldErrs) > 0 {
		return Failed(models.FailedFormState(data, fieldErrs))
	}

	record := models.NewSubmissionRecord(data, req.Slug)

	if r.hooks.HandlerFactory != nil {
		handler := r.hooks.HandlerFactory(ctx)
		if err := r.invokeHandler(ctx, handler, record, category); err != nil {
			return r.failureFor(err, data, req.Slug)
		}
	}

	return SubmissionRedirect(r.SuccessLocation(req.Slug))
}

// decodeFields turns the posted values into a field map, delegating to the
// configured parser hook when present.
func (r *Router) decodeFields(posted url.Values) (map[string]interface{}, map[string]string) {
	if r.hooks.FormParser != nil {
		return r.hooks.FormParser(posted)
	}
	return valuesToMap(posted), nil
}

// invokeHandler shields the state machine from handler panics; a panic is a
// handler failure, not a gateway crash.
func (r *Router) invokeHandler(ctx context.Context, handler SubmissionHandler, record models.SubmissionRecord, category config.CategoryConfig) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("submission handler panic: %v", rec)
		}
	}()
	return handler(ctx, record, category)
}

// failureFor maps a handler error to the failure outcome the caller renders.
func (r *Router) failureFor(err error, data map[string]interface{}, slug string) Outcome {
	r.logger.Error("submission handler failed", map[string]interface{}{
		"slug":  slug,
		"error": err.Error(),
	})

	if errors.IsBotVerificationFailure(err) {
		return Failed(models.FailedFormState(data, map[string]string{
			models.FormErrorKey: errors.MsgBotVerification,
		}))
	}

	if r.hooks.ErrorHandler != nil {
		form := models.FailedFormState(data, nil)
		if custom := r.hooks.ErrorHandler(err, form, slug); custom != nil {
			return *custom
		}
	}

	return Failed(models.FailedFormState(data, map[string]string{
		models.FormErrorKey: errors.MsgGenericFailure,
	}))
}

// BasePath is the locale-aware root of the contact form routes.
func (r *Router) BasePath() string {
	if r.forms.LocalePrefix != "" {
		return fmt.Sprintf("/%s/%s", r.forms.LocalePrefix, r.forms.BasePath)
	}
	return "/" + r.forms.BasePath
}

// CategoryPath is the canonical path of a configured category.
func (r *Router) CategoryPath(slug string) string {
	return r.BasePath() + "/" + slug
}

// SuccessLocation is the post-submit redirect target carrying the category.
func (r *Router) SuccessLocation(slug string) string {
	return fmt.Sprintf("%s/%s?category=%s", r.BasePath(), r.forms.SuccessPath, url.QueryEscape(slug))
}

func valuesToMap(values url.Values) map[string]interface{} {
	fields := make(map[string]interface{}, len(values))
	for key := range values {
		fields[key] = values.Get(key)
	}
	return fields
}
