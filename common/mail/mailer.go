// Package mail sends notification messages. The Mailer interface is the
// contract the workflow depends on; SMTP transport details stay here.
package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/buildtrack/patchhub/common/config"
	"github.com/buildtrack/patchhub/common/logger"
)

// Mailer delivers composed messages to recipients
type Mailer interface {
	SendPlain(to, cc []string, subject, body string) error
	SendHTML(to, cc []string, subject, body string) error
}

// SMTPMailer sends mail through an SMTP relay
type SMTPMailer struct {
	addr string
	from string
	log  *logger.Logger
}

// NewSMTPMailer creates a mailer from the mail configuration
func NewSMTPMailer(cfg config.MailConfig, log *logger.Logger) *SMTPMailer {
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		from: cfg.From,
		log:  log,
	}
}

// SendPlain sends a text/plain message
func (m *SMTPMailer) SendPlain(to, cc []string, subject, body string) error {
	return m.send(to, cc, subject, body, "text/plain")
}

// SendHTML sends a text/html message
func (m *SMTPMailer) SendHTML(to, cc []string, subject, body string) error {
	return m.send(to, cc, subject, body, "text/html")
}

func (m *SMTPMailer) send(to, cc []string, subject, body, contentType string) error {
	recipients := append(append([]string{}, to...), cc...)
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients for message %q", subject)
	}

	var msg strings.Builder
	msg.WriteString("From: " + m.from + "\r\n")
	msg.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	if len(cc) > 0 {
		msg.WriteString("Cc: " + strings.Join(cc, ", ") + "\r\n")
	}
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: " + contentType + "; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(m.addr, nil, m.from, recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail %q: %w", subject, err)
	}

	m.log.Debug("mail sent", "subject", subject, "to", len(to), "cc", len(cc))
	return nil
}

// NopMailer discards all messages. Used when mail is disabled.
type NopMailer struct{}

func (NopMailer) SendPlain(to, cc []string, subject, body string) error { return nil }
func (NopMailer) SendHTML(to, cc []string, subject, body string) error  { return nil }
