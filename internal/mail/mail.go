// Package mail delivers transactional email over SMTP.
package mail

import (
	"fmt"
	"log/slog"

	"scribio/internal/config"
	"scribio/internal/middleware"
	"scribio/internal/observability"

	"gopkg.in/gomail.v2"
)

// Sender delivers the verification mails the auth flows depend on. Tests swap
// in a recording stub.
type Sender interface {
	SendVerificationCode(to string, code int) error
	SendPasswordResetCode(to string, code int) error
}

// SMTPSender sends mail through a configured SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.MailFrom,
	}
}

func (s *SMTPSender) SendVerificationCode(to string, code int) error {
	body := fmt.Sprintf(
		"<p>Your verification code is <b>%d</b>.</p><p>It expires in 15 minutes. If you did not request this, ignore this message.</p>",
		code,
	)
	return s.send("verification", to, "Confirm your email", body)
}

func (s *SMTPSender) SendPasswordResetCode(to string, code int) error {
	body := fmt.Sprintf(
		"<p>Your password reset code is <b>%d</b>.</p><p>It expires in 15 minutes. If you did not request a reset, ignore this message.</p>",
		code,
	)
	return s.send("password_reset", to, "Reset your password", body)
}

func (s *SMTPSender) send(template, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		observability.MailSendFailures.WithLabelValues(template).Inc()
		middleware.Logger.Error("Failed to send mail",
			slog.String("template", template),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to send %s mail: %w", template, err)
	}
	return nil
}
