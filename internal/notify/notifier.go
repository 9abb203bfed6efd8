package notify

import (
	"context"

	"github.com/code-withabhi/safety-compass/internal/metrics"
	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/sirupsen/logrus"
)

// Request - запрос на уведомление экстренных контактов
type Request struct {
	UserID    string  `json:"user_id"`
	Message   string  `json:"message"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ContactResult - результат доставки по одному контакту
type ContactResult struct {
	ContactName string `json:"contact_name"`
	Channel     string `json:"channel"` // sms или email
	Delivered   bool   `json:"delivered"`
	Error       string `json:"error,omitempty"`
}

// Report - итог рассылки по всем контактам
type Report struct {
	Results []ContactResult `json:"results"`
}

// AnyDelivered сообщает, дошло ли уведомление хотя бы по одному каналу
func (r *Report) AnyDelivered() bool {
	for _, res := range r.Results {
		if res.Delivered {
			return true
		}
	}
	return false
}

// SMSChannel абстрагирует провайдера доставки SMS
type SMSChannel interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

// EmailChannel абстрагирует провайдера доставки email
type EmailChannel interface {
	SendEmail(ctx context.Context, to, subject, body string) (string, error)
}

// Dispatcher рассылает уведомление по всем достижимым каналам контактов.
// Доставка best-effort: отказы фиксируются в отчете, но не прерывают рассылку.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request, contacts []*models.EmergencyContact) *Report
}

type dispatcher struct {
	sms    SMSChannel
	email  EmailChannel
	logger *logrus.Logger
}

func NewDispatcher(sms SMSChannel, email EmailChannel, logger *logrus.Logger) Dispatcher {
	return &dispatcher{
		sms:    sms,
		email:  email,
		logger: logger,
	}
}

// Dispatch отправляет сообщение каждому контакту по каждому его каналу
func (d *dispatcher) Dispatch(ctx context.Context, req Request, contacts []*models.EmergencyContact) *Report {
	log := d.logger.WithFields(logrus.Fields{
		"service": "notify",
		"method":  "Dispatch",
		"user_id": req.UserID,
	})

	report := &Report{Results: make([]ContactResult, 0, len(contacts))}

	for _, contact := range contacts {
		if contact.Phone != "" {
			result := ContactResult{ContactName: contact.Name, Channel: "sms"}
			if _, err := d.sms.SendSMS(ctx, contact.Phone, req.Message); err != nil {
				log.WithError(err).WithField("contact", contact.Name).Warn("SMS delivery failed")
				metrics.NotificationFailures.Inc()
				result.Error = err.Error()
			} else {
				result.Delivered = true
			}
			report.Results = append(report.Results, result)
		}

		if contact.Email != "" {
			result := ContactResult{ContactName: contact.Name, Channel: "email"}
			if _, err := d.email.SendEmail(ctx, contact.Email, "Emergency alert", req.Message); err != nil {
				log.WithError(err).WithField("contact", contact.Name).Warn("Email delivery failed")
				metrics.NotificationFailures.Inc()
				result.Error = err.Error()
			} else {
				result.Delivered = true
			}
			report.Results = append(report.Results, result)
		}
	}

	log.WithField("delivered", report.AnyDelivered()).Info("Notification dispatch completed")
	return report
}
