package risk

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/code-withabhi/safety-compass/internal/metrics"
	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// Порог скорости и дистанции для правила фолбэка
	highSpeedKMH      = 60.0
	nightSpeedKMH     = 40.0
	mediumSpeedMinKMH = 30.0
	highDistanceM     = 50.0
	mediumDistanceMin = 20.0

	fallbackConfidence = 0.55

	earthRadiusM = 6371000.0
)

// Classifier присваивает уровень риска по признакам скорости/позиции/времени.
// Внешняя модель используется когда доступна; при любой её ошибке срабатывает
// детерминированное правило. Результаты кешируются по квантованному отпечатку.
type Classifier interface {
	Classify(ctx context.Context, features models.RiskFeatures) (*models.ClassificationResult, error)
}

type classifier struct {
	store  Store
	remote RemoteClient
	ttl    time.Duration
	logger *logrus.Logger
}

func NewClassifier(store Store, remote RemoteClient, ttl time.Duration, logger *logrus.Logger) Classifier {
	return &classifier{
		store:  store,
		remote: remote,
		ttl:    ttl,
		logger: logger,
	}
}

// Classify выполняет классификацию риска. Ошибка возвращается только при
// отменённом контексте - отказ внешнего вызова деградирует до фолбэка.
func (c *classifier) Classify(ctx context.Context, features models.RiskFeatures) (*models.ClassificationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("classification aborted: %w", err)
	}

	log := c.logger.WithFields(logrus.Fields{
		"service": "risk",
		"method":  "Classify",
	})

	distance := 0.0
	if features.PrevLatitude != nil && features.PrevLongitude != nil {
		distance = HaversineMeters(*features.PrevLatitude, *features.PrevLongitude, features.Latitude, features.Longitude)
	}

	hour := features.Timestamp.Hour()
	key := fingerprint(features.Speed, features.Latitude, features.Longitude, hour, distance)

	// Кеш схлопывает почти одинаковые запросы (повторные сабмиты) в один слот
	if cached, err := c.store.Get(ctx, key); err != nil {
		log.WithError(err).Warn("Risk cache read failed, treating as miss")
	} else if cached != nil {
		metrics.ClassifierCacheHits.Inc()
		hit := *cached
		hit.Provenance = models.ProvenanceCache
		return &hit, nil
	}

	result := c.classifyRemote(ctx, features, distance, hour, log)

	if err := c.store.Set(ctx, key, result, c.ttl); err != nil {
		log.WithError(err).Warn("Failed to store classification result in cache")
	}

	return result, nil
}

// classifyRemote пробует внешнюю модель и валидирует её ответ;
// любое отклонение приводит к детерминированному правилу
func (c *classifier) classifyRemote(ctx context.Context, features models.RiskFeatures, distance float64, hour int, log *logrus.Entry) *models.ClassificationResult {
	if c.remote != nil {
		resp, err := c.remote.Classify(ctx, RemoteRequest{
			Speed:     features.Speed,
			Latitude:  features.Latitude,
			Longitude: features.Longitude,
			Timestamp: features.Timestamp,
		})
		if err == nil {
			tier := models.RiskTier(resp.RiskLevel)
			if models.ValidRiskTier(tier) && resp.Confidence >= 0 && resp.Confidence <= 1 {
				return &models.ClassificationResult{
					RiskLevel:  tier,
					Confidence: resp.Confidence,
					Reasoning:  resp.Reasoning,
					Provenance: models.ProvenanceModel,
				}
			}
			// Модель ответила, но вне известного перечисления - не доверяем
			log.WithField("risk_level", resp.RiskLevel).Warn("Remote classifier returned invalid payload, using fallback rule")
		} else {
			log.WithError(err).Warn("Remote classification failed, using fallback rule")
		}
	}

	metrics.ClassifierFallbacks.Inc()
	return Fallback(features.Speed, distance, hour)
}

// Fallback - детерминированное правило классификации риска
func Fallback(speed, distance float64, hour int) *models.ClassificationResult {
	night := hour < 6 || hour >= 22
	rush := (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19)

	tier := models.RiskLow
	switch {
	case speed > highSpeedKMH || distance > highDistanceM || (night && speed > nightSpeedKMH):
		tier = models.RiskHigh
	case (speed >= mediumSpeedMinKMH && speed <= highSpeedKMH) ||
		(distance >= mediumDistanceMin && distance <= highDistanceM) || rush:
		tier = models.RiskMedium
	}

	return &models.ClassificationResult{
		RiskLevel:  tier,
		Confidence: fallbackConfidence,
		Reasoning: fmt.Sprintf("rule-based: speed=%.1f km/h, movement=%.0f m, hour=%d (night=%t, rush=%t)",
			speed, distance, hour, night, rush),
		Provenance: models.ProvenanceFallback,
	}
}

// fingerprint строит квантованный ключ кеша: скорость до 0.1,
// координаты до 3 знаков (~111 м), час и округлённая дистанция
func fingerprint(speed, lat, lon float64, hour int, distance float64) string {
	return fmt.Sprintf("risk:%.1f:%.3f:%.3f:%d:%.0f", speed, lat, lon, hour, distance)
}

// HaversineMeters возвращает расстояние по большому кругу между двумя точками WGS84
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}
