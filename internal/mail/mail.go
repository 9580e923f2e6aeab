// Package mail sends account emails. Delivery is fire-and-forget: callers
// treat a failed send as a logged warning, never a request failure.
package mail

import (
	"fmt"
	"log"
	"net/smtp"
)

// Sender delivers one email.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	Addr string // host:port
	From string
	Auth smtp.Auth
}

// NewSMTPSender creates a sender for the given relay. username may be empty
// for unauthenticated relays.
func NewSMTPSender(host string, port int, from, username, password string) *SMTPSender {
	s := &SMTPSender{
		Addr: fmt.Sprintf("%s:%d", host, port),
		From: from,
	}
	if username != "" {
		s.Auth = smtp.PlainAuth("", username, password, host)
	}
	return s
}

// Send delivers one message.
func (s *SMTPSender) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		s.From, to, subject, body)

	if err := smtp.SendMail(s.Addr, s.Auth, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// LogSender writes mail to the log instead of delivering it. Used in
// development and as a fallback when no relay is configured.
type LogSender struct {
	Logger *log.Logger
}

// Send logs the message.
func (s *LogSender) Send(to, subject, body string) error {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("mail (not sent) to=%s subject=%q\n%s", to, subject, body)
	return nil
}

// VerificationBody renders the email-verification message.
func VerificationBody(name, verifyURL string) (subject, body string) {
	subject = "Verify your email"
	body = fmt.Sprintf(
		"Hi %s,\n\nPlease verify your email address by visiting:\n\n  %s\n\nIf you did not create this account, ignore this message.\n",
		name, verifyURL)
	return subject, body
}
