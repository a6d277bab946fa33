// Package notify sends transactional e-mail.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"shopx/internal/config"
	"shopx/internal/logger"
)

// Message is a plain-text e-mail.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer, or a log-only mailer when no host is configured.
func New(cfg config.SMTPConfig, l *zap.Logger) Mailer {
	if cfg.Host == "" {
		return &LogMailer{logger: logger.OrNop(l)}
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// SMTPMailer delivers through net/smtp with PLAIN auth when credentials are set.
type SMTPMailer struct {
	cfg  config.SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("mail: no recipients")
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := m.send(addr, auth, envelopeAddress(m.cfg.From), msg.To, build(m.cfg.From, msg)); err != nil {
		return fmt.Errorf("mail: send: %w", err)
	}
	return nil
}

// LogMailer records messages instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("mail not sent (no SMTP host)", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func build(from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

// envelopeAddress extracts the bare address from "Name <addr>".
func envelopeAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			return from[i+1 : j]
		}
	}
	return strings.TrimSpace(from)
}
