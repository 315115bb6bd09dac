package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"contact-gateway/internal/common/logger"
	"contact-gateway/internal/models"
	"contact-gateway/internal/notify"
	"contact-gateway/internal/ratelimit"
	"contact-gateway/internal/sanitize"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Pipeline Fakes
// ==========================

type fakeLimiter struct {
	decision ratelimit.Decision
	err      error
	calls    int
}

func (f *fakeLimiter) Check(context.Context, string, string) (ratelimit.Decision, error) {
	f.calls++
	return f.decision, f.err
}

type fakeGuard struct {
	valid bool
	calls int
}

func (f *fakeGuard) ValidateRequest(context.Context, string, string) bool {
	f.calls++
	return f.valid
}

type fakeVerifier struct {
	valid bool
	calls int
}

func (f *fakeVerifier) Verify(context.Context, string) bool {
	f.calls++
	return f.valid
}

type recordingNotifier struct {
	mu      sync.Mutex
	records []models.SubmissionRecord
}

func (n *recordingNotifier) Dispatch(_ context.Context, record models.SubmissionRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.records = append(n.records, record)
}

func (n *recordingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.records)
}

type panickingSanitizer struct{}

func (panickingSanitizer) Sanitize(interface{}) (map[string]interface{}, bool) {
	panic("sanitizer exploded")
}

// ==========================
// Test Helpers
// ==========================

type testDeps struct {
	limiter  *fakeLimiter
	guard    *fakeGuard
	verifier *fakeVerifier
	notifier *recordingNotifier
}

func newTestPipeline(hooks Hooks) (*Pipeline, *testDeps) {
	deps := &testDeps{
		limiter:  &fakeLimiter{decision: ratelimit.Decision{Allowed: true}},
		guard:    &fakeGuard{valid: true},
		verifier: &fakeVerifier{valid: true},
		notifier: &recordingNotifier{},
	}

	p := New(
		deps.limiter,
		deps.guard,
		sanitize.New(),
		deps.verifier,
		deps.notifier,
		hooks,
		"general",
		logger.NewNoOpLogger(),
	)
	return p, deps
}

func validBody() []byte {
	return []byte(`{"name":"John Doe","email":"john@example.com","message":"Hello there"}`)
}

func testRequest(body []byte) Request {
	return Request{
		Identifier:   "1.2.3.4",
		SessionID:    "session-a",
		ForgeryToken: "token-a",
		Body:         body,
	}
}

// ==========================
// Stage Tests
// ==========================

func TestPipeline_RateLimited(t *testing.T) {
	p, deps := newTestPipeline(Hooks{})
	deps.limiter.decision = ratelimit.Decision{Allowed: false, RetryAfter: 42 * time.Second}

	result := p.Process(context.Background(), testRequest(validBody()))

	assert.Equal(t, http.StatusTooManyRequests, result.Status)
	require.NotNil(t, result.Error)
	assert.False(t, result.Error.Success)
	assert.Equal(t, 42, result.Error.RetryAfter)
	assert.Zero(t, deps.guard.calls, "later stages must not run")
	assert.Zero(t, deps.notifier.Count())
}

func TestPipeline_RateLimitStoreFailureDenies(t *testing.T) {
	p, deps := newTestPipeline(Hooks{})
	deps.limiter.decision = ratelimit.Decision{Allowed: false, RetryAfter: time.Minute}
	deps.limiter.err = errors.New("store down")

	result := p.Process(context.Background(), testRequest(validBody()))

	assert.Equal(t, http.StatusTooManyRequests, result.Status)
	assert.Zero(t, deps.guard.calls)
}

func TestPipeline_ForgeryFailure(t *testing.T) {
	p, deps := newTestPipeline(Hooks{})
	deps.guard.valid = false

	result := p.Process(context.Background(), testRequest(validBody()))

	assert.Equal(t, http.StatusForbidden, result.Status)
	require.NotNil(t, result.Error)
	assert.Equal(t, "Invalid security token. Please try again.", result.Error.Error)
	assert.Zero(t, deps.notifier.Count())
}

func TestPipeline_MalformedJSON(t *testing.T) {
	p, deps := newTestPipeline(Hooks{})

	result := p.Process(context.Background(), testRequest([]byte(`{"name": `)))

	assert.Equal(t, http.StatusBadRequest, result.Status)
	require.NotNil(t, result.Error)
	assert.NotEmpty(t, result.Error.Error)
	assert.Empty(t, result.Error.Errors)
	assert.Zero(t, deps.notifier.Count())
}

func TestPipeline_SanitizerShapeFailureSkipsValidationAndHandler(t *testing.T) {
	p, deps := newTestPipeline(Hooks{})

	// Valid JSON, but not an object: the sanitizer signals an unrecoverable
	// shape failure which must not surface as field errors.
	result := p.Process(context.Background(), testRequest([]byte(`["a","b"]`)))

	assert.Equal(t, http.StatusBadRequest, result.Status)
	require.NotNil(t, result.Error)
	assert.NotEmpty(t, result.Error.Error)
	assert.Empty(t, result.Error.Errors, "shape failure is not a field error")
	assert.Zero(t, deps.notifier.Count())
}

func TestPipeline_AllMissingFieldsReported(t *testing.T) {
	p, _ := newTestPipeline(Hooks{})

	result := p.Process(context.Background(), testRequest([]byte(`{}`)))

	assert.Equal(t, http.StatusBadRequest, result.Status)
	require.NotNil(t, result.Error)
	assert.Len(t, result.Error.Errors, 3)
	assert.Contains(t, result.Error.Errors, "name")
	assert.Contains(t, result.Error.Errors, "email")
	assert.Contains(t, result.Error.Errors, "message")
}

func TestPipeline_InvalidEmailReported(t *testing.T) {
	p, _ := newTestPipeline(Hooks{})

	result := p.Process(context.Background(), testRequest(
		[]byte(`{"name":"John","email":"not-an-email","message":"hi"}`)))

	assert.Equal(t, http.StatusBadRequest, result.Status)
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Errors, "email")
}

func TestPipeline_BotTokenVerified(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		verifierOK bool
		wantStatus int
		wantCalls  int
	}{
		{
			name:       "token present and accepted",
			body:       `{"name":"John","email":"john@example.com","message":"hi","botVerificationToken":"tok"}`,
			verifierOK: true,
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:       "token present and rejected",
			body:       `{"name":"John","email":"john@example.com","message":"hi","botVerificationToken":"tok"}`,
			verifierOK: false,
			wantStatus: http.StatusBadRequest,
			wantCalls:  1,
		},
		{
			name:       "no token skips verification",
			body:       `{"name":"John","email":"john@example.com","message":"hi"}`,
			verifierOK: false,
			wantStatus: http.StatusOK,
			wantCalls:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, deps := newTestPipeline(Hooks{})
			deps.verifier.valid = tt.verifierOK

			result := p.Process(context.Background(), testRequest([]byte(tt.body)))

			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantCalls, deps.verifier.calls)
		})
	}
}

func TestPipeline_CustomValidatorErrorsMerge(t *testing.T) {
	p, _ := newTestPipeline(Hooks{
		CustomValidator: func(fields map[string]interface{}) map[string]string {
			return map[string]string{"phone": "Phone number looks invalid."}
		},
	})

	result := p.Process(context.Background(), testRequest(
		[]byte(`{"name":"John","email":"bad","message":"hi","phone":"x"}`)))

	assert.Equal(t, http.StatusBadRequest, result.Status)
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Errors, "email")
	assert.Contains(t, result.Error.Errors, "phone")
}

func TestPipeline_SuccessHookExtendsEnvelope(t *testing.T) {
	p, _ := newTestPipeline(Hooks{
		SuccessHook: func(_ context.Context, record map[string]interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{"ticketId": "T-1001"}, nil
		},
	})

	result := p.Process(context.Background(), testRequest(validBody()))

	require.NotNil(t, result.Success)
	assert.Equal(t, "T-1001", result.Success.Extra["ticketId"])
}

func TestPipeline_SuccessHookFailureDoesNotFailRequest(t *testing.T) {
	tests := []struct {
		name string
		hook func(context.Context, map[string]interface{}) (map[string]interface{}, error)
	}{
		{
			name: "hook returns error",
			hook: func(context.Context, map[string]interface{}) (map[string]interface{}, error) {
				return nil, errors.New("crm write failed")
			},
		},
		{
			name: "hook panics",
			hook: func(context.Context, map[string]interface{}) (map[string]interface{}, error) {
				panic("hook exploded")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, deps := newTestPipeline(Hooks{SuccessHook: tt.hook})

			result := p.Process(context.Background(), testRequest(validBody()))

			require.NotNil(t, result.Success, "hook failure must never fail the request")
			assert.Equal(t, http.StatusOK, result.Status)
			assert.Equal(t, 1, deps.notifier.Count(), "dispatch still happens")
		})
	}
}

func TestPipeline_RoundTrip_ExactlyOneDispatch(t *testing.T) {
	p, deps := newTestPipeline(Hooks{})

	result := p.Process(context.Background(), testRequest(validBody()))

	require.NotNil(t, result.Success)
	assert.True(t, result.Success.Success)
	assert.Equal(t, http.StatusOK, result.Status)

	require.Equal(t, 1, deps.notifier.Count())
	record := deps.notifier.records[0]
	assert.Equal(t, "general", record.Category())
	assert.Equal(t, "John Doe", record["name"])
}

func TestPipeline_DispatchFailureDoesNotChangeSuccess(t *testing.T) {
	sender := notify.NewSESSenderWithClient(sesAlwaysFails{}, "noreply@example.com", "ops@example.com")
	dispatcher := notify.NewDispatcher([]notify.Sender{sender}, time.Second, logger.NewNoOpLogger())

	deps := &testDeps{
		limiter:  &fakeLimiter{decision: ratelimit.Decision{Allowed: true}},
		guard:    &fakeGuard{valid: true},
		verifier: &fakeVerifier{valid: true},
	}

	p := New(deps.limiter, deps.guard, sanitize.New(), deps.verifier, dispatcher, Hooks{}, "general", logger.NewNoOpLogger())

	result := p.Process(context.Background(), testRequest(validBody()))

	require.NotNil(t, result.Success)
	assert.True(t, result.Success.Success, "dispatch failure must not alter the envelope")
}

type sesAlwaysFails struct{}

func (sesAlwaysFails) SendEmail(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return nil, fmt.Errorf("ses unavailable")
}

func TestPipeline_CategoryInjectedFromPayload(t *testing.T) {
	p, deps := newTestPipeline(Hooks{})

	result := p.Process(context.Background(), testRequest(
		[]byte(`{"name":"John","email":"john@example.com","message":"hi","category":"sales"}`)))

	require.NotNil(t, result.Success)
	require.Equal(t, 1, deps.notifier.Count())
	assert.Equal(t, "sales", deps.notifier.records[0].Category())
}

func TestPipeline_PanicBecomesGeneric500(t *testing.T) {
	deps := &testDeps{
		limiter:  &fakeLimiter{decision: ratelimit.Decision{Allowed: true}},
		guard:    &fakeGuard{valid: true},
		verifier: &fakeVerifier{valid: true},
		notifier: &recordingNotifier{},
	}
	p := New(deps.limiter, deps.guard, panickingSanitizer{}, deps.verifier, deps.notifier, Hooks{}, "general", logger.NewNoOpLogger())

	result := p.Process(context.Background(), testRequest(validBody()))

	assert.Equal(t, http.StatusInternalServerError, result.Status)
	require.NotNil(t, result.Error)
	assert.NotContains(t, result.Error.Error, "exploded", "internal detail must not leak")
	assert.Zero(t, deps.notifier.Count())
}
