package notify

import (
	"context"
	"fmt"

	"github.com/code-withabhi/safety-compass/internal/config"
	"github.com/kavenegar/kavenegar-go"
	"github.com/sirupsen/logrus"
)

// NewSMSChannel выбирает реализацию SMS-канала по SMS_PROVIDER.
// Поддерживается "kavenegar"; без провайдера возвращается noop-канал.
func NewSMSChannel(cfg *config.Config, logger *logrus.Logger) SMSChannel {
	switch cfg.SMSProvider {
	case "kavenegar":
		if cfg.SMSAPIKey == "" {
			logger.Warn("SMS_PROVIDER is 'kavenegar' but SMS_API_KEY is not set, using noop channel")
			return &noopSMSChannel{}
		}
		return NewKavenegarSMSChannel(cfg.SMSAPIKey, cfg.SMSSender)
	default:
		if cfg.SMSProvider == "" {
			logger.Warn("SMS_PROVIDER is not set, using noop channel")
		} else {
			logger.Warnf("Unknown SMS_PROVIDER '%s', using noop channel", cfg.SMSProvider)
		}
		return &noopSMSChannel{}
	}
}

type kavenegarSMSChannel struct {
	api    *kavenegar.Kavenegar
	sender string
}

// NewKavenegarSMSChannel создает SMS-канал поверх Kavenegar API
func NewKavenegarSMSChannel(apiKey, sender string) SMSChannel {
	return &kavenegarSMSChannel{
		api:    kavenegar.New(apiKey),
		sender: sender,
	}
}

func (c *kavenegarSMSChannel) SendSMS(_ context.Context, phone, message string) (string, error) {
	if phone == "" {
		return "", fmt.Errorf("phone number is required")
	}

	res, err := c.api.Message.Send(c.sender, []string{phone}, message, nil)
	if err != nil {
		switch err := err.(type) {
		case *kavenegar.APIError:
			return "", fmt.Errorf("kavenegar API error: %w", err)
		case *kavenegar.HTTPError:
			return "", fmt.Errorf("kavenegar HTTP error: %w", err)
		default:
			return "", fmt.Errorf("failed to send SMS: %w", err)
		}
	}

	if len(res) == 0 {
		return "", fmt.Errorf("no response entries from Kavenegar")
	}
	return fmt.Sprintf("%d", res[0].MessageID), nil
}

type noopSMSChannel struct{}

func (c *noopSMSChannel) SendSMS(_ context.Context, _, _ string) (string, error) {
	return "", fmt.Errorf("SMS channel is not configured")
}
