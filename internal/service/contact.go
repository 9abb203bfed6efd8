package service

import (
	"context"
	"fmt"

	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContactRepository определяет контракт для работы с бд экстренных контактов
type ContactRepository interface {
	Create(ctx context.Context, contact *models.EmergencyContact) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.EmergencyContact, error)
	ListByUser(ctx context.Context, userID string) ([]*models.EmergencyContact, error)
	Delete(ctx context.Context, id uuid.UUID, userID string) error
}

// ContactService определяет контракт управления экстренными контактами.
// Обновления на месте нет: замена контакта = удалить и создать заново.
type ContactService interface {
	CreateContact(ctx context.Context, contact *models.EmergencyContact) error
	ListContacts(ctx context.Context, userID string) ([]*models.EmergencyContact, error)
	DeleteContact(ctx context.Context, id uuid.UUID, userID string) error
}

type contactService struct {
	repo   ContactRepository
	logger *logrus.Logger
}

func NewContactService(repo ContactRepository, logger *logrus.Logger) ContactService {
	return &contactService{
		repo:   repo,
		logger: logger,
	}
}

// CreateContact создает контакт; требуется хотя бы один канал связи
func (s *contactService) CreateContact(ctx context.Context, contact *models.EmergencyContact) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "contact",
		"method":  "CreateContact",
		"user_id": contact.UserID,
	})

	if !contact.Reachable() {
		return ErrNoReachableContacts
	}

	if err := s.repo.Create(ctx, contact); err != nil {
		log.WithError(err).Error("Failed to create contact in repository")
		return fmt.Errorf("service: could not create contact: %w", err)
	}

	log.WithField("contact_id", contact.ID).Info("Emergency contact created")
	return nil
}

// ListContacts возвращает контакты пользователя
func (s *contactService) ListContacts(ctx context.Context, userID string) ([]*models.EmergencyContact, error) {
	contacts, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list contacts from repository")
		return nil, fmt.Errorf("service: could not list contacts: %w", err)
	}
	return contacts, nil
}

// DeleteContact удаляет контакт пользователя
func (s *contactService) DeleteContact(ctx context.Context, id uuid.UUID, userID string) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":    "contact",
		"method":     "DeleteContact",
		"contact_id": id,
		"user_id":    userID,
	})

	if err := s.repo.Delete(ctx, id, userID); err != nil {
		log.WithError(err).Warn("Failed to delete contact in repository")
		return fmt.Errorf("service: could not delete contact: %w", err)
	}

	log.Info("Emergency contact deleted")
	return nil
}
