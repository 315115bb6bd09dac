package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"contact-gateway/internal/common/logger"
	"contact-gateway/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	Calls         int
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.Calls++
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	Calls       int
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.Calls++
	return m.PublishFunc(ctx, params, optFns...)
}

func testRecord() models.SubmissionRecord {
	return models.NewSubmissionRecord(map[string]interface{}{
		"name":    "John Doe",
		"email":   "john@example.com",
		"message": "I need help with my order.",
		"phone":   "+15551234567",
	}, "support")
}

// ==========================
// Tests
// ==========================

func TestBuildNotification(t *testing.T) {
	n := BuildNotification(testRecord())

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "support", n.Category)
	assert.Equal(t, "New support inquiry from John Doe", n.Subject)
	assert.Equal(t, "john@example.com", n.ReplyTo)
	assert.Contains(t, n.Body, "John Doe <john@example.com>")
	assert.Contains(t, n.Body, "+15551234567")
	assert.Contains(t, n.Body, "I need help with my order.")
}

func TestBuildNotification_ExplicitSubjectWins(t *testing.T) {
	record := testRecord()
	record["subject"] = "Broken checkout"

	n := BuildNotification(record)
	assert.Equal(t, "Broken checkout", n.Subject)
}

func TestSESSender_Send(t *testing.T) {
	mock := &MockSESService{
		SendEmailFunc: func(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			assert.Equal(t, "noreply@example.com", *params.Source)
			assert.Equal(t, []string{"ops@example.com"}, params.Destination.ToAddresses)
			assert.Equal(t, []string{"john@example.com"}, params.ReplyToAddresses)
			return &ses.SendEmailOutput{}, nil
		},
	}

	sender := NewSESSenderWithClient(mock, "noreply@example.com", "ops@example.com")
	err := sender.Send(context.Background(), BuildNotification(testRecord()))
	require.NoError(t, err)
	assert.Equal(t, 1, mock.Calls)
}

func TestSESSender_SendFailure(t *testing.T) {
	mock := &MockSESService{
		SendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}

	sender := NewSESSenderWithClient(mock, "noreply@example.com", "ops@example.com")
	err := sender.Send(context.Background(), BuildNotification(testRecord()))
	assert.Error(t, err)
}

func TestSNSSender_Send(t *testing.T) {
	mock := &MockSNSService{
		PublishFunc: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			assert.Equal(t, "+15550000000", *params.PhoneNumber)
			assert.Contains(t, *params.Message, "support")
			return &sns.PublishOutput{}, nil
		},
	}

	sender := NewSNSSenderWithClient(mock, "+15550000000")
	err := sender.Send(context.Background(), BuildNotification(testRecord()))
	require.NoError(t, err)
	assert.Equal(t, 1, mock.Calls)
}

func TestSMTPSender_Send(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	sender := &SMTPSender{
		host: "mail.example.com",
		port: 587,
		from: "noreply@example.com",
		to:   "ops@example.com",
		send: func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
			return nil
		},
	}

	err := sender.Send(context.Background(), BuildNotification(testRecord()))
	require.NoError(t, err)
	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"ops@example.com"}, gotTo)
	assert.True(t, strings.Contains(string(gotMsg), "Reply-To: john@example.com"))
}

func TestDispatcher_Dispatch_FailureIsSwallowed(t *testing.T) {
	failing := &MockSESService{
		SendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("ses unavailable")
		},
	}
	working := &MockSNSService{
		PublishFunc: func(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return &sns.PublishOutput{}, nil
		},
	}

	dispatcher := NewDispatcher([]Sender{
		NewSESSenderWithClient(failing, "noreply@example.com", "ops@example.com"),
		NewSNSSenderWithClient(working, "+15550000000"),
	}, time.Second, logger.NewNoOpLogger())

	// Must not panic or propagate; the failing channel must not stop the next one.
	dispatcher.Dispatch(context.Background(), testRecord())

	assert.Equal(t, 1, failing.Calls)
	assert.Equal(t, 1, working.Calls)
}
