package risk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/redis/go-redis/v9"
)

// Store - внедряемое хранилище результатов классификации с TTL.
// Get возвращает (nil, nil) при промахе или истёкшей записи.
type Store interface {
	Get(ctx context.Context, key string) (*models.ClassificationResult, error)
	Set(ctx context.Context, key string, result *models.ClassificationResult, ttl time.Duration) error
}

// RedisStore - реализация Store поверх Redis
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get пытается получить результат классификации из Redis
func (s *RedisStore) Get(ctx context.Context, key string) (*models.ClassificationResult, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get classification from cache: %w", err)
	}

	result := &models.ClassificationResult{}
	if err := json.Unmarshal(val, result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal classification from cache: %w", err)
	}
	return result, nil
}

// Set сохраняет результат классификации в Redis со сроком жизни ttl
func (s *RedisStore) Set(ctx context.Context, key string, result *models.ClassificationResult, ttl time.Duration) error {
	val, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal classification for cache: %w", err)
	}
	if err := s.client.Set(ctx, key, val, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set classification in cache: %w", err)
	}
	return nil
}

type memoryEntry struct {
	result    models.ClassificationResult
	expiresAt time.Time
}

// MemoryStore - реализация Store в памяти процесса.
// Истёкшие записи проверяются лениво при чтении, фоновой очистки нет.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// NewMemoryStoreWithClock создает MemoryStore с подменяемыми часами для тестов
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	s := NewMemoryStore()
	s.now = now
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) (*models.ClassificationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, nil
	}
	result := entry.result
	return &result, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, result *models.ClassificationResult, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{
		result:    *result,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}
