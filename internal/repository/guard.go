package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/code-withabhi/safety-compass/internal/service"
	"github.com/redis/go-redis/v9"
)

// SubmitGuard - межсессионный маркер защиты от двойного сабмита.
// Маркер ставится до любых сетевых вызовов пайплайна и освобождается
// только истечением TTL, никогда явно.
type SubmitGuard struct {
	redisClient *redis.Client
}

func NewSubmitGuard(redisClient *redis.Client) service.SubmitGuard {
	return &SubmitGuard{redisClient: redisClient}
}

// Acquire пытается поставить маркер сабмита для пользователя.
// Возвращает false, если маркер уже стоит (недавний сабмит из любой сессии).
func (g *SubmitGuard) Acquire(ctx context.Context, userID string, window time.Duration) (bool, error) {
	key := fmt.Sprintf("submit_guard:%s", userID)
	ok, err := g.redisClient.SetNX(ctx, key, time.Now().UnixMilli(), window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire submit guard: %w", err)
	}
	return ok, nil
}
