package notify

import (
	"context"
	"fmt"

	"contact-gateway/internal/common/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSService is the slice of the SNS API the sender needs.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSender delivers a short SMS alert through AWS SNS.
type SNSSender struct {
	client  SNSService
	toPhone string
}

func NewSNSSender(ctx context.Context, region, toPhone string) (*SNSSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &SNSSender{client: sns.NewFromConfig(awsCfg), toPhone: toPhone}, nil
}

// NewSNSSenderWithClient wires an explicit client, used by tests.
func NewSNSSenderWithClient(client SNSService, toPhone string) *SNSSender {
	return &SNSSender{client: client, toPhone: toPhone}
}

func (s *SNSSender) Name() string { return "sms" }

func (s *SNSSender) Send(ctx context.Context, n Notification) error {
	message := fmt.Sprintf("New %s contact form submission: %s", n.Category, n.Subject)

	input := &sns.PublishInput{
		PhoneNumber: aws.String(s.toPhone),
		Message:     aws.String(message),
	}

	if _, err := s.client.Publish(ctx, input); err != nil {
		return errors.NewNotificationSendFailedError("sms", err)
	}
	return nil
}
