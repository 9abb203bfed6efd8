package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/code-withabhi/safety-compass/internal/service"
	"github.com/redis/go-redis/v9"
)

// PositionRepository хранит последнюю известную позицию пользователя в Redis.
// Запись живет ограниченное время: устаревший фикс хуже его отсутствия.
type PositionRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewPositionRepository(redisClient *redis.Client, ttl time.Duration) service.PositionRepository {
	return &PositionRepository{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func positionKey(userID string) string {
	return fmt.Sprintf("position:%s", userID)
}

// Set сохраняет последний фикс позиции пользователя
func (r *PositionRepository) Set(ctx context.Context, userID string, fix *models.PositionFix) error {
	val, err := json.Marshal(fix)
	if err != nil {
		return fmt.Errorf("failed to marshal position fix: %w", err)
	}
	if err := r.redisClient.Set(ctx, positionKey(userID), val, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set position fix: %w", err)
	}
	return nil
}

// Get возвращает последний фикс позиции или (nil, nil), если его нет
func (r *PositionRepository) Get(ctx context.Context, userID string) (*models.PositionFix, error) {
	val, err := r.redisClient.Get(ctx, positionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get position fix: %w", err)
	}

	fix := &models.PositionFix{}
	if err := json.Unmarshal(val, fix); err != nil {
		return nil, fmt.Errorf("failed to unmarshal position fix: %w", err)
	}
	return fix, nil
}
