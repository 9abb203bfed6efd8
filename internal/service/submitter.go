package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/code-withabhi/safety-compass/internal/events"
	"github.com/code-withabhi/safety-compass/internal/metrics"
	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/code-withabhi/safety-compass/internal/notify"
	"github.com/code-withabhi/safety-compass/internal/risk"
	"github.com/sirupsen/logrus"
)

// SubmitGuard определяет контракт межсессионного маркера защиты от дублей
type SubmitGuard interface {
	Acquire(ctx context.Context, userID string, window time.Duration) (bool, error)
}

// OutcomeStatus - агрегированный итог сабмита
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomePartial OutcomeStatus = "partial"
	OutcomeFailure OutcomeStatus = "failure"
)

// Outcome - единый итог пайплайна сабмита для вызывающей стороны
type Outcome struct {
	Status   OutcomeStatus    `json:"status"`
	Message  string           `json:"message"`
	Incident *models.Incident `json:"incident,omitempty"`
	Report   *notify.Report   `json:"notification_report,omitempty"`
}

// Submitter определяет контракт пайплайна сабмита инцидента
type Submitter interface {
	Submit(ctx context.Context, userID string, fix, prev *models.PositionFix) (*Outcome, error)
}

type submitter struct {
	incidents  IncidentRepository
	contacts   ContactRepository
	classifier risk.Classifier
	dispatcher notify.Dispatcher
	publisher  events.Publisher
	guard      SubmitGuard
	cooldown   time.Duration
	logger     *logrus.Logger
	now        func() time.Time

	mu         sync.Mutex
	lastSubmit map[string]time.Time
	inFlight   map[string]bool
}

func NewSubmitter(
	incidents IncidentRepository,
	contacts ContactRepository,
	classifier risk.Classifier,
	dispatcher notify.Dispatcher,
	publisher events.Publisher,
	guard SubmitGuard,
	cooldown time.Duration,
	logger *logrus.Logger,
) Submitter {
	return &submitter{
		incidents:  incidents,
		contacts:   contacts,
		classifier: classifier,
		dispatcher: dispatcher,
		publisher:  publisher,
		guard:      guard,
		cooldown:   cooldown,
		logger:     logger,
		now:        time.Now,
		lastSubmit: make(map[string]time.Time),
		inFlight:   make(map[string]bool),
	}
}

// Submit выполняет пайплайн: защита от дублей -> классификация -> запись
// инцидента -> best-effort уведомление контактов. Оба защитных барьера
// проверяются синхронно до первого сетевого вызова.
func (s *submitter) Submit(ctx context.Context, userID string, fix, prev *models.PositionFix) (*Outcome, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "submitter",
		"method":  "Submit",
		"user_id": userID,
	})

	if fix == nil {
		return nil, ErrNoPositionFix
	}

	// Оба барьера берутся под одной блокировкой до любой точки приостановки:
	// гонка таймера и ручного подтверждения закрывается здесь
	s.mu.Lock()
	if s.inFlight[userID] {
		s.mu.Unlock()
		log.Info("Submission already in flight, suppressing")
		metrics.DuplicatesSuppressed.Inc()
		return nil, ErrDuplicateSubmission
	}
	if last, ok := s.lastSubmit[userID]; ok && s.now().Sub(last) < s.cooldown {
		s.mu.Unlock()
		log.Info("Submission within cool-down window, suppressing")
		metrics.DuplicatesSuppressed.Inc()
		return nil, ErrDuplicateSubmission
	}
	s.inFlight[userID] = true
	s.lastSubmit[userID] = s.now()
	s.mu.Unlock()

	// Барьер в полете снимается всегда; маркер кулдауна остается до истечения окна
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, userID)
		s.mu.Unlock()
	}()

	// Межсессионный маркер (вторая вкладка, зависший таймер) ставится до
	// классификации и записи. Отказ самого Redis не блокирует экстренный сабмит.
	if s.guard != nil {
		acquired, err := s.guard.Acquire(ctx, userID, s.cooldown)
		if err != nil {
			log.WithError(err).Warn("Submit guard unavailable, proceeding without cross-session dedupe")
		} else if !acquired {
			log.Info("Cross-session submit marker present, suppressing")
			metrics.DuplicatesSuppressed.Inc()
			return nil, ErrDuplicateSubmission
		}
	}

	tier := s.classifyTier(ctx, fix, prev, log)

	incident := &models.Incident{
		UserID:    userID,
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Speed:     fix.Speed,
		RiskLevel: tier,
		Status:    models.StatusPending,
	}

	if err := s.incidents.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to persist incident")
		return &Outcome{
			Status:  OutcomeFailure,
			Message: "failed to save emergency alert",
		}, fmt.Errorf("submitter: could not persist incident: %w", err)
	}
	metrics.IncidentsCreated.Inc()
	log.WithFields(logrus.Fields{"incident_id": incident.ID, "risk_level": tier}).Info("Incident persisted")

	s.publishCreated(ctx, incident, log)

	report := s.notifyContacts(ctx, incident, log)
	if report == nil || !report.AnyDelivered() {
		return &Outcome{
			Status:   OutcomePartial,
			Message:  "alert saved, notification failed",
			Incident: incident,
			Report:   report,
		}, nil
	}

	return &Outcome{
		Status:   OutcomeSuccess,
		Message:  "alert saved, contacts notified",
		Incident: incident,
		Report:   report,
	}, nil
}

// classifyTier вызывает классификатор; при его ошибке применяется локальное
// правило по скорости - сабмит не должен падать из-за классификации
func (s *submitter) classifyTier(ctx context.Context, fix, prev *models.PositionFix, log *logrus.Entry) models.RiskTier {
	features := models.RiskFeatures{
		Speed:     fix.Speed,
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Timestamp: s.now(),
	}
	if prev != nil {
		features.PrevLatitude = &prev.Latitude
		features.PrevLongitude = &prev.Longitude
	}

	result, err := s.classifier.Classify(ctx, features)
	if err != nil || result == nil {
		log.WithError(err).Warn("Classifier failed, using local speed rule")
		switch {
		case fix.Speed > 50:
			return models.RiskHigh
		case fix.Speed > 20:
			return models.RiskMedium
		default:
			return models.RiskLow
		}
	}

	log.WithFields(logrus.Fields{
		"risk_level": result.RiskLevel,
		"provenance": result.Provenance,
		"confidence": result.Confidence,
	}).Info("Risk classified")
	return result.RiskLevel
}

// notifyContacts рассылает уведомления; любой отказ деградирует до
// частичного успеха и не откатывает записанный инцидент
func (s *submitter) notifyContacts(ctx context.Context, incident *models.Incident, log *logrus.Entry) *notify.Report {
	contacts, err := s.contacts.ListByUser(ctx, incident.UserID)
	if err != nil {
		log.WithError(err).Warn("Failed to load emergency contacts for notification")
		return nil
	}

	reachable := make([]*models.EmergencyContact, 0, len(contacts))
	for _, c := range contacts {
		if c.Reachable() {
			reachable = append(reachable, c)
		}
	}
	if len(reachable) == 0 {
		log.Warn("No reachable emergency contacts to notify")
		return nil
	}

	message := fmt.Sprintf(
		"Emergency alert: possible accident detected (risk %s) at %.5f, %.5f. Please check on the person immediately.",
		incident.RiskLevel, incident.Latitude, incident.Longitude,
	)

	return s.dispatcher.Dispatch(ctx, notify.Request{
		UserID:    incident.UserID,
		Message:   message,
		Latitude:  incident.Latitude,
		Longitude: incident.Longitude,
	}, reachable)
}

func (s *submitter) publishCreated(ctx context.Context, incident *models.Incident, log *logrus.Entry) {
	if s.publisher == nil {
		return
	}
	event := events.IncidentEvent{
		Type:      events.EventIncidentCreated,
		Incident:  incident,
		Timestamp: s.now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Warn("Failed to publish incident created event")
	}
}
