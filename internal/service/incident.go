package service

import (
	"context"
	"fmt"
	"time"

	"github.com/code-withabhi/safety-compass/internal/events"
	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IncidentRepository определяет контракт для работы с бд инцидентов
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	UpdateStatus(ctx context.Context, incident *models.Incident) error
	List(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*models.Incident, error)
}

// IncidentService определяет контракт бизнес-логики просмотра и триажа инцидентов
type IncidentService interface {
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	ListUserIncidents(ctx context.Context, userID string, page, pageSize int) ([]*models.Incident, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.IncidentStatus, notes string) (*models.Incident, error)
}

type incidentService struct {
	repo      IncidentRepository
	publisher events.Publisher
	logger    *logrus.Logger
	now       func() time.Time
}

func NewIncidentService(repo IncidentRepository, publisher events.Publisher, logger *logrus.Logger) IncidentService {
	return &incidentService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// GetIncident получает инцидент по ID
func (s *incidentService) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}
	return incident, nil
}

// ListIncidents возвращает все инциденты с пагинацией (админский обзор)
func (s *incidentService) ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	page, pageSize = normalizePage(page, pageSize)

	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "ListIncidents",
		"page":      page,
		"page_size": pageSize,
	})

	incidents, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}

// ListUserIncidents возвращает инциденты одного пользователя
func (s *incidentService) ListUserIncidents(ctx context.Context, userID string, page, pageSize int) ([]*models.Incident, error) {
	page, pageSize = normalizePage(page, pageSize)

	incidents, err := s.repo.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list user incidents from repository")
		return nil, fmt.Errorf("service: could not list user incidents: %w", err)
	}
	return incidents, nil
}

// UpdateStatus выполняет переход статуса инцидента. Статус двигается только
// вперед и только на один шаг: pending -> responded -> resolved.
// Временные отметки ставятся на своем переходе и никогда не очищаются.
func (s *incidentService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.IncidentStatus, notes string) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "UpdateStatus",
		"incident_id": id,
		"status":      status,
	})

	if status.Rank() < 0 {
		return nil, fmt.Errorf("%w: unknown status %q", ErrStatusTransition, status)
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to update status of a non-existent incident")
		return nil, fmt.Errorf("service: incident not found for status update: %w", err)
	}

	delta := status.Rank() - existing.Status.Rank()
	if delta <= 0 {
		return nil, fmt.Errorf("%w: status %q cannot regress to %q", ErrStatusTransition, existing.Status, status)
	}
	if delta > 1 {
		return nil, fmt.Errorf("%w: status %q cannot skip to %q", ErrStatusTransition, existing.Status, status)
	}

	now := s.now()
	existing.Status = status
	switch status {
	case models.StatusResponded:
		existing.RespondedAt = &now
	case models.StatusResolved:
		existing.ResolvedAt = &now
	}
	if notes != "" {
		existing.Notes = notes
	}

	if err := s.repo.UpdateStatus(ctx, existing); err != nil {
		log.WithError(err).Error("Failed to update incident status in repository")
		return nil, fmt.Errorf("service: could not update incident status: %w", err)
	}

	if s.publisher != nil {
		event := events.IncidentEvent{
			Type:      events.EventIncidentStatusChanged,
			Incident:  existing,
			Timestamp: now,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			log.WithError(err).Warn("Failed to publish status changed event")
		}
	}

	log.Info("Incident status updated successfully")
	return existing, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
