package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/novatra-store/novatra-backend/pkg/config"
	"github.com/novatra-store/novatra-backend/pkg/logger"
)

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	cfg  config.SMTPConfig
	logg *logger.Logger
}

// NewSMTPMailer validates the relay settings and returns a mailer.
func NewSMTPMailer(cfg config.SMTPConfig, logg *logger.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &SMTPMailer{cfg: cfg, logg: logg}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	m.logg.Info(m.logg.WithField(ctx, "mail_to", to), "transactional mail sent")
	return nil
}

// NoopMailer swallows every message. Used in tests and local setups without a relay.
type NoopMailer struct{}

func (NoopMailer) Send(ctx context.Context, to, subject, body string) error { return nil }
