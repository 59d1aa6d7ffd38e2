// Package mail sends the out-of-band messages of the one-time token flows:
// password reset links and email verification links.
package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/nerrad567/accounthub/internal/infrastructure/config"
	"github.com/nerrad567/accounthub/internal/infrastructure/logging"
)

// Mailer delivers a single HTML message to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	client *gomail.Client
	from   string
}

// NewSMTPMailer creates a mailer from config. TLS is opportunistic: STARTTLS
// when the relay offers it, plaintext otherwise, which matches the dev relays
// this service is pointed at. Production relays should offer STARTTLS.
func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating smtp client: %w", err)
	}

	return &SMTPMailer{client: client, from: cfg.From}, nil
}

// Send delivers one HTML message. Blocks until the relay accepts it or the
// context is cancelled.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer is the mailer used when outbound mail is disabled. It logs the
// message instead of sending it, so token links remain reachable in dev
// through the service log.
type LogMailer struct {
	logger *logging.Logger
}

// NewLogMailer creates a log-only mailer.
func NewLogMailer(logger *logging.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("component", "mail")}
}

// Send logs the message instead of delivering it.
func (m *LogMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.logger.Info("outbound mail suppressed (mail disabled)",
		"to", to,
		"subject", subject,
		"body", htmlBody,
	)
	return nil
}
