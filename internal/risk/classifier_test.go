package risk_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/code-withabhi/safety-compass/internal/risk"
	"github.com/code-withabhi/safety-compass/internal/risk/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах
	return logger
}

func TestFallback_HighRiskScenarios(t *testing.T) {
	tests := []struct {
		name     string
		speed    float64
		distance float64
		hour     int
	}{
		{"high speed daytime", 70, 0, 14},
		{"large movement delta", 10, 80, 12},
		{"moderate speed at night", 45, 0, 23},
		{"moderate speed before dawn", 45, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := risk.Fallback(tt.speed, tt.distance, tt.hour)
			assert.Equal(t, models.RiskHigh, result.RiskLevel)
			assert.Equal(t, models.ProvenanceFallback, result.Provenance)
			assert.InDelta(t, 0.55, result.Confidence, 1e-9)
		})
	}
}

func TestFallback_MediumRiskScenarios(t *testing.T) {
	tests := []struct {
		name     string
		speed    float64
		distance float64
		hour     int
	}{
		{"medium speed band", 40, 0, 12},
		{"medium movement band", 5, 30, 12},
		{"morning rush hour", 10, 5, 8},
		{"evening rush hour", 10, 5, 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := risk.Fallback(tt.speed, tt.distance, tt.hour)
			assert.Equal(t, models.RiskMedium, result.RiskLevel)
			assert.Equal(t, models.ProvenanceFallback, result.Provenance)
		})
	}
}

func TestFallback_LowRisk(t *testing.T) {
	result := risk.Fallback(10, 5, 12)
	assert.Equal(t, models.RiskLow, result.RiskLevel)
	assert.NotEmpty(t, result.Reasoning)
}

// Правило фолбэка детерминировано: одинаковый вход дает одинаковый выход
func TestFallback_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		speed := rng.Float64() * 120
		distance := rng.Float64() * 100
		hour := rng.Intn(24)

		first := risk.Fallback(speed, distance, hour)
		second := risk.Fallback(speed, distance, hour)

		require.Equal(t, first.RiskLevel, second.RiskLevel)
		require.Equal(t, first.Confidence, second.Confidence)
		require.Equal(t, first.Reasoning, second.Reasoning)
		require.True(t, models.ValidRiskTier(first.RiskLevel))
	}
}

func TestClassify_RemoteSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteClient(ctrl)

	remote.EXPECT().
		Classify(gomock.Any(), gomock.Any()).
		Return(&risk.RemoteResponse{RiskLevel: "high", Confidence: 0.92, Reasoning: "rapid deceleration"}, nil).
		Times(1)

	c := risk.NewClassifier(risk.NewMemoryStore(), remote, time.Minute, newTestLogger())

	result, err := c.Classify(context.Background(), models.RiskFeatures{
		Speed:     70,
		Latitude:  55.75,
		Longitude: 37.62,
		Timestamp: time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.Equal(t, models.RiskHigh, result.RiskLevel)
	assert.Equal(t, models.ProvenanceModel, result.Provenance)
	assert.InDelta(t, 0.92, result.Confidence, 1e-9)
}

func TestClassify_RemoteErrorFallsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteClient(ctrl)

	remote.EXPECT().
		Classify(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("model timeout")).
		Times(1)

	c := risk.NewClassifier(risk.NewMemoryStore(), remote, time.Minute, newTestLogger())

	result, err := c.Classify(context.Background(), models.RiskFeatures{
		Speed:     70,
		Latitude:  55.75,
		Longitude: 37.62,
		Timestamp: time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.Equal(t, models.RiskHigh, result.RiskLevel)
	assert.Equal(t, models.ProvenanceFallback, result.Provenance)
}

// Модель ответила уровнем вне перечисления - результат не принимается
func TestClassify_InvalidRemoteTierFallsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteClient(ctrl)

	remote.EXPECT().
		Classify(gomock.Any(), gomock.Any()).
		Return(&risk.RemoteResponse{RiskLevel: "catastrophic", Confidence: 0.99}, nil).
		Times(1)

	c := risk.NewClassifier(risk.NewMemoryStore(), remote, time.Minute, newTestLogger())

	result, err := c.Classify(context.Background(), models.RiskFeatures{
		Speed:     10,
		Latitude:  55.75,
		Longitude: 37.62,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.Equal(t, models.ProvenanceFallback, result.Provenance)
	assert.True(t, models.ValidRiskTier(result.RiskLevel))
}

func TestClassify_InvalidConfidenceFallsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteClient(ctrl)

	remote.EXPECT().
		Classify(gomock.Any(), gomock.Any()).
		Return(&risk.RemoteResponse{RiskLevel: "low", Confidence: 1.7}, nil).
		Times(1)

	c := risk.NewClassifier(risk.NewMemoryStore(), remote, time.Minute, newTestLogger())

	result, err := c.Classify(context.Background(), models.RiskFeatures{
		Speed:     10,
		Latitude:  55.75,
		Longitude: 37.62,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.Equal(t, models.ProvenanceFallback, result.Provenance)
}

// Повторная классификация тех же признаков в пределах TTL отдается из кеша,
// внешний вызов выполняется ровно один раз
func TestClassify_CacheIdempotence(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteClient(ctrl)

	remote.EXPECT().
		Classify(gomock.Any(), gomock.Any()).
		Return(&risk.RemoteResponse{RiskLevel: "medium", Confidence: 0.8, Reasoning: "moderate speed"}, nil).
		Times(1)

	c := risk.NewClassifier(risk.NewMemoryStore(), remote, time.Minute, newTestLogger())

	features := models.RiskFeatures{
		Speed:     40,
		Latitude:  55.75,
		Longitude: 37.62,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	first, err := c.Classify(context.Background(), features)
	require.NoError(t, err)
	assert.Equal(t, models.ProvenanceModel, first.Provenance)

	second, err := c.Classify(context.Background(), features)
	require.NoError(t, err)
	assert.Equal(t, models.ProvenanceCache, second.Provenance)
	assert.Equal(t, first.RiskLevel, second.RiskLevel)
	assert.Equal(t, first.Confidence, second.Confidence)
}

// Истекший TTL означает промах: внешний вызов повторяется
func TestClassify_CacheExpiry(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteClient(ctrl)

	remote.EXPECT().
		Classify(gomock.Any(), gomock.Any()).
		Return(&risk.RemoteResponse{RiskLevel: "low", Confidence: 0.6}, nil).
		Times(2)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := risk.NewMemoryStoreWithClock(func() time.Time { return current })

	c := risk.NewClassifier(store, remote, time.Minute, newTestLogger())

	features := models.RiskFeatures{Speed: 10, Latitude: 55.75, Longitude: 37.62, Timestamp: current}

	_, err := c.Classify(context.Background(), features)
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	result, err := c.Classify(context.Background(), features)
	require.NoError(t, err)
	assert.Equal(t, models.ProvenanceModel, result.Provenance)
}

func TestClassify_CacheReadErrorTreatedAsMiss(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteClient(ctrl)
	store := mocks.NewMockStore(ctrl)

	store.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("redis down")).Times(1)
	store.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down")).Times(1)
	remote.EXPECT().
		Classify(gomock.Any(), gomock.Any()).
		Return(&risk.RemoteResponse{RiskLevel: "low", Confidence: 0.6}, nil).
		Times(1)

	c := risk.NewClassifier(store, remote, time.Minute, newTestLogger())

	result, err := c.Classify(context.Background(), models.RiskFeatures{
		Speed:     10,
		Latitude:  55.75,
		Longitude: 37.62,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.Equal(t, models.ProvenanceModel, result.Provenance)
}

func TestClassify_CancelledContext(t *testing.T) {
	c := risk.NewClassifier(risk.NewMemoryStore(), nil, time.Minute, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := c.Classify(ctx, models.RiskFeatures{Speed: 10})
	assert.Error(t, err)
	assert.Nil(t, result)
}

// Без внешнего клиента классификатор сразу применяет правило
func TestClassify_NoRemoteUsesFallback(t *testing.T) {
	c := risk.NewClassifier(risk.NewMemoryStore(), nil, time.Minute, newTestLogger())

	prevLat, prevLon := 55.75, 37.62
	result, err := c.Classify(context.Background(), models.RiskFeatures{
		Speed:         10,
		Latitude:      55.751,
		Longitude:     37.62,
		Timestamp:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		PrevLatitude:  &prevLat,
		PrevLongitude: &prevLon,
	})

	require.NoError(t, err)
	assert.Equal(t, models.ProvenanceFallback, result.Provenance)
	// ~111 м смещения по широте превышает порог высокого риска по движению
	assert.Equal(t, models.RiskHigh, result.RiskLevel)
}

func TestHaversineMeters(t *testing.T) {
	// Один градус широты - примерно 111.2 км
	d := risk.HaversineMeters(55.0, 37.0, 56.0, 37.0)
	assert.InDelta(t, 111195, d, 500)

	assert.Equal(t, 0.0, risk.HaversineMeters(55.75, 37.62, 55.75, 37.62))

	// Симметричность
	assert.InDelta(t,
		risk.HaversineMeters(55.75, 37.62, 55.76, 37.63),
		risk.HaversineMeters(55.76, 37.63, 55.75, 37.62),
		1e-9)
}

func TestHaversineMeters_SmallDelta(t *testing.T) {
	// ~0.001 градуса широты - около 111 м
	d := risk.HaversineMeters(55.750, 37.62, 55.751, 37.62)
	assert.True(t, math.Abs(d-111.2) < 2, "expected ~111m, got %f", d)
}
