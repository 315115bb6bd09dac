package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"contact-gateway/internal/common/config"
	"contact-gateway/internal/common/errors"
)

// SMTPSender delivers notification email through a plain SMTP relay, for
// deployments without AWS credentials.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       string

	// send is swappable in tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg config.NotificationConfig, to string) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTP.Host,
		port:     cfg.SMTP.Port,
		username: cfg.SMTP.Username,
		password: cfg.SMTP.Password,
		from:     cfg.SMTP.DefaultFrom,
		to:       to,
		send:     smtp.SendMail,
	}
}

func (s *SMTPSender) Name() string { return "smtp" }

func (s *SMTPSender) Send(_ context.Context, n Notification) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", s.to)
	if n.ReplyTo != "" {
		fmt.Fprintf(&msg, "Reply-To: %s\r\n", n.ReplyTo)
	}
	fmt.Fprintf(&msg, "Subject: %s\r\n", n.Subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(n.Body)

	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if err := s.send(addr, auth, s.from, []string{s.to}, []byte(msg.String())); err != nil {
		return errors.NewNotificationSendFailedError("smtp", err)
	}
	return nil
}
