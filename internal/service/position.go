package service

import (
	"context"
	"fmt"

	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/sirupsen/logrus"
)

// PositionRepository определяет контракт кеша последней позиции пользователя.
// Get возвращает (nil, nil), если актуального фикса нет.
type PositionRepository interface {
	Set(ctx context.Context, userID string, fix *models.PositionFix) error
	Get(ctx context.Context, userID string) (*models.PositionFix, error)
}

// PositionService определяет контракт источника позиции
type PositionService interface {
	Update(ctx context.Context, userID string, fix *models.PositionFix) error
	Latest(ctx context.Context, userID string) (*models.PositionFix, error)
}

type positionService struct {
	repo   PositionRepository
	logger *logrus.Logger
}

func NewPositionService(repo PositionRepository, logger *logrus.Logger) PositionService {
	return &positionService{
		repo:   repo,
		logger: logger,
	}
}

// Update сохраняет свежий фикс позиции пользователя
func (s *positionService) Update(ctx context.Context, userID string, fix *models.PositionFix) error {
	if err := s.repo.Set(ctx, userID, fix); err != nil {
		s.logger.WithError(err).Error("Failed to store position fix")
		return fmt.Errorf("service: could not store position fix: %w", err)
	}
	return nil
}

// Latest возвращает последний известный фикс или (nil, nil)
func (s *positionService) Latest(ctx context.Context, userID string) (*models.PositionFix, error) {
	fix, err := s.repo.Get(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to read position fix")
		return nil, fmt.Errorf("service: could not read position fix: %w", err)
	}
	return fix, nil
}
