package notify

import (
	"context"
	"fmt"

	"contact-gateway/internal/common/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESService is the slice of the SES API the sender needs, declared locally so
// tests can substitute a mock.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender delivers notifications as email through AWS SES.
type SESSender struct {
	client    SESService
	fromEmail string
	toEmail   string
}

func NewSESSender(ctx context.Context, region, fromEmail, toEmail string) (*SESSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &SESSender{
		client:    ses.NewFromConfig(awsCfg),
		fromEmail: fromEmail,
		toEmail:   toEmail,
	}, nil
}

// NewSESSenderWithClient wires an explicit client, used by tests.
func NewSESSenderWithClient(client SESService, fromEmail, toEmail string) *SESSender {
	return &SESSender{client: client, fromEmail: fromEmail, toEmail: toEmail}
}

func (s *SESSender) Name() string { return "email" }

func (s *SESSender) Send(ctx context.Context, n Notification) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{s.toEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(n.Subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(n.Body)},
			},
		},
	}
	if n.ReplyTo != "" {
		input.ReplyToAddresses = []string{n.ReplyTo}
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return errors.NewNotificationSendFailedError("email", err)
	}
	return nil
}
