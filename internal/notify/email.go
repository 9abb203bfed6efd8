package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/code-withabhi/safety-compass/internal/config"
	"github.com/sirupsen/logrus"
)

// NewEmailChannel возвращает SMTP-канал, если задан SMTP_HOST, иначе noop
func NewEmailChannel(cfg *config.Config, logger *logrus.Logger) EmailChannel {
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP_HOST is not set, using noop email channel")
		return &noopEmailChannel{}
	}
	return &smtpEmailChannel{
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		host: cfg.SMTPHost,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: cfg.SMTPFrom,
	}
}

type smtpEmailChannel struct {
	addr string
	host string
	user string
	pass string
	from string
}

func (c *smtpEmailChannel) SendEmail(_ context.Context, to, subject, body string) (string, error) {
	if to == "" {
		return "", fmt.Errorf("recipient address is required")
	}

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", c.from, to, subject, body))

	var auth smtp.Auth
	if c.user != "" {
		auth = smtp.PlainAuth("", c.user, c.pass, c.host)
	}

	if err := smtp.SendMail(c.addr, auth, c.from, []string{to}, msg); err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	return to, nil
}

type noopEmailChannel struct{}

func (c *noopEmailChannel) SendEmail(_ context.Context, _, _, _ string) (string, error) {
	return "", fmt.Errorf("email channel is not configured")
}
