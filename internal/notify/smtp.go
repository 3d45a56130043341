package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

type SMTPConfig struct {
	Addr     string // host:port
	Host     string
	From     string
	Password string
}

// SMTPMailer sends each recipient an individual copy so addresses never
// leak between invitees.
type SMTPMailer struct {
	cfg SMTPConfig
	log *slog.Logger
}

func NewSMTPMailer(cfg SMTPConfig, log *slog.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	const op = "notify.SMTPMailer.Send"

	auth := smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)

	var lastErr error
	for _, rcpt := range msg.Recipients {
		if strings.TrimSpace(rcpt) == "" {
			continue
		}

		raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
			m.cfg.From, rcpt, msg.Subject, msg.Body,
		)

		if err := smtp.SendMail(m.cfg.Addr, auth, m.cfg.From, []string{rcpt}, []byte(raw)); err != nil {
			m.log.Warn("send email failed", "recipient", rcpt, "error", err)
			lastErr = fmt.Errorf("%s: %w", op, err)
			continue
		}

		m.log.Info("email sent", "recipient", rcpt, "subject", msg.Subject)
	}

	return lastErr
}
