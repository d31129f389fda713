// Package mail delivers outbound email on a best-effort basis. Senders are
// tried in order until one succeeds; the final sender in a production chain
// is LogSender, so delivery degrades to a structured log line instead of
// failing the request that triggered it.
package mail

import (
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/roombook/api/internal/config"
)

// Sender delivers a single email.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends through a plain SMTP relay.
type SMTPSender struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

// Configured reports whether this sender has a relay to talk to.
func (m *SMTPSender) Configured() bool { return m.host != "" }

func (m *SMTPSender) Send(to, subject, body string) error {
	if !m.Configured() {
		return fmt.Errorf("smtp host not configured")
	}
	msg := fmt.Sprintf("From: Room Booking System <%s>\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}

// LogSender "delivers" by logging. It is the terminal fallback when no
// real delivery is configured, mirroring how verification codes degrade
// to the in-process store when Redis is absent.
type LogSender struct {
	Log *slog.Logger
}

func (l *LogSender) Send(to, subject, body string) error {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("email delivery not configured, logging only",
		"to", to, "subject", subject, "body", body)
	return nil
}

// Chain tries each sender in order and stops at the first success.
type Chain struct {
	senders []Sender
	log     *slog.Logger
}

func NewChain(log *slog.Logger, senders ...Sender) *Chain {
	if log == nil {
		log = slog.Default()
	}
	return &Chain{senders: senders, log: log}
}

func (c *Chain) Send(to, subject, body string) error {
	var lastErr error
	for _, s := range c.senders {
		if err := s.Send(to, subject, body); err != nil {
			c.log.Warn("email sender failed, trying next", "err", err)
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no email senders configured")
	}
	return fmt.Errorf("all email senders failed: %w", lastErr)
}
