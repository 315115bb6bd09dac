// Package notify delivers submission notifications to the site operators.
//
// Dispatch is best-effort: the pipeline reports success to the submitter even
// when delivery fails, so every failure here is logged and counted but never
// propagated to the caller.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"contact-gateway/internal/common/logger"
	"contact-gateway/internal/common/metrics"
	"contact-gateway/internal/models"

	"github.com/google/uuid"
)

// Notification is one outbound message about a submission.
type Notification struct {
	ID       string
	Category string
	Subject  string
	Body     string
	ReplyTo  string
}

// Sender delivers a notification over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Dispatcher fans a submission out to every configured sender with a bounded
// timeout per dispatch.
type Dispatcher struct {
	senders []Sender
	timeout time.Duration
	logger  logger.Logger
}

func NewDispatcher(senders []Sender, timeout time.Duration, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		senders: senders,
		timeout: timeout,
		logger:  log,
	}
}

// Dispatch builds a notification from the record and attempts delivery on
// every channel. It never returns an error; failures are logged and counted.
func (d *Dispatcher) Dispatch(ctx context.Context, record models.SubmissionRecord) {
	n := BuildNotification(record)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	for _, sender := range d.senders {
		if err := sender.Send(ctx, n); err != nil {
			metrics.NotificationDispatches.WithLabelValues(sender.Name(), "failed").Inc()
			d.logger.Error("notification dispatch failed", map[string]interface{}{
				"channel":        sender.Name(),
				"notificationId": n.ID,
				"category":       n.Category,
				"error":          err.Error(),
			})
			continue
		}

		metrics.NotificationDispatches.WithLabelValues(sender.Name(), "sent").Inc()
		d.logger.Info("notification dispatched", map[string]interface{}{
			"channel":        sender.Name(),
			"notificationId": n.ID,
			"category":       n.Category,
		})
	}
}

// BuildNotification renders the submission into a subject and plain-text body.
func BuildNotification(record models.SubmissionRecord) Notification {
	category := record.Category()
	name, _ := record["name"].(string)
	email, _ := record["email"].(string)
	message, _ := record["message"].(string)
	subject, _ := record["subject"].(string)

	if subject == "" {
		subject = fmt.Sprintf("New %s inquiry from %s", category, name)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Category: %s\n", category)
	fmt.Fprintf(&body, "From: %s <%s>\n", name, email)
	if phone, ok := record["phone"].(string); ok && phone != "" {
		fmt.Fprintf(&body, "Phone: %s\n", phone)
	}
	fmt.Fprintf(&body, "\n%s\n", message)

	return Notification{
		ID:       uuid.New().String(),
		Category: category,
		Subject:  subject,
		Body:     body.String(),
		ReplyTo:  email,
	}
}
