package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	webhookQueueKey = "incident_events"

	// PubSubChannel - канал Redis pub/sub для живой ленты администратора
	PubSubChannel = "safety:incidents"

	EventIncidentCreated       = "incident.created"
	EventIncidentStatusChanged = "incident.status_changed"
)

// IncidentEvent - событие жизненного цикла инцидента
type IncidentEvent struct {
	Type      string           `json:"type"`
	Incident  *models.Incident `json:"incident"`
	Timestamp time.Time        `json:"timestamp"`
}

// Publisher - интерфейс для публикации событий инцидентов
type Publisher interface {
	Publish(ctx context.Context, event IncidentEvent) error
}

// RedisPublisher - реализация Publisher, использующая Redis
type RedisPublisher struct {
	redisClient *redis.Client
}

// NewRedisPublisher создает новый RedisPublisher
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		redisClient: client,
	}
}

// Publish кладет событие в очередь вебхуков и транслирует его подписчикам ленты
func (p *RedisPublisher) Publish(ctx context.Context, event IncidentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal incident event: %w", err)
	}

	// Используем LPUSH для добавления события в левую часть списка (очереди)
	if err := p.redisClient.LPush(ctx, webhookQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish incident event to Redis: %w", err)
	}

	// Pub/sub доставляет событие живым подписчикам websocket-ленты
	if err := p.redisClient.Publish(ctx, PubSubChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to broadcast incident event: %w", err)
	}
	return nil
}
