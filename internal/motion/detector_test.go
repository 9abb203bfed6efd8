package motion

import (
	"testing"
	"time"

	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		DropThreshold:  2.0,
		ShakeThreshold: 12.0,
		Debounce:       3 * time.Second,
	}
}

func grantedDetector(cfg Config, callback Callback) *Detector {
	d := NewDetector("user-1", cfg, callback)
	d.SetPermission(models.PermissionGranted)
	return d
}

func TestProcess_DropDetected(t *testing.T) {
	var events []models.MotionEventKind
	d := grantedDetector(testConfig(), func(_ string, kind models.MotionEventKind) {
		events = append(events, kind)
	})

	// Почти нулевое ускорение с гравитацией в сигнале = свободное падение
	kind := d.Process(models.AccelSample{X: 0.2, Y: 0.3, Z: 0.1, IncludesGravity: true, Timestamp: time.Now()})

	assert.Equal(t, models.MotionDrop, kind)
	require.Len(t, events, 1)
	assert.Equal(t, models.MotionDrop, events[0])
}

func TestProcess_ShakeWithGravity(t *testing.T) {
	d := grantedDetector(testConfig(), nil)

	// Магнитуда далеко от 1g
	kind := d.Process(models.AccelSample{X: 25, Y: 0, Z: 0, IncludesGravity: true, Timestamp: time.Now()})
	assert.Equal(t, models.MotionShake, kind)
}

func TestProcess_ShakeWithoutGravity(t *testing.T) {
	d := grantedDetector(testConfig(), nil)

	kind := d.Process(models.AccelSample{X: 15, Y: 0, Z: 0, IncludesGravity: false, Timestamp: time.Now()})
	assert.Equal(t, models.MotionShake, kind)
}

func TestProcess_RestingIsQuiet(t *testing.T) {
	d := grantedDetector(testConfig(), nil)

	// Телефон лежит на столе: магнитуда около 1g
	kind := d.Process(models.AccelSample{X: 0, Y: 0, Z: 9.8, IncludesGravity: true, Timestamp: time.Now()})
	assert.Equal(t, models.MotionEventKind(""), kind)
}

// Низкая магнитуда без гравитации в сигнале - не падение: без 1g в сигнале
// покой и свободное падение неразличимы
func TestProcess_NoDropWithoutGravity(t *testing.T) {
	d := grantedDetector(testConfig(), nil)

	kind := d.Process(models.AccelSample{X: 0.1, Y: 0.1, Z: 0.1, IncludesGravity: false, Timestamp: time.Now()})
	assert.Equal(t, models.MotionEventKind(""), kind)
}

// За один замер срабатывает не больше одного события, падение приоритетнее
func TestProcess_DropWinsOverShake(t *testing.T) {
	cfg := testConfig()
	cfg.ShakeThreshold = 5.0 // |0.5 - 9.81| > 5 тоже прошло бы как тряска
	d := grantedDetector(cfg, nil)

	kind := d.Process(models.AccelSample{X: 0.5, Y: 0, Z: 0, IncludesGravity: true, Timestamp: time.Now()})
	assert.Equal(t, models.MotionDrop, kind)
}

func TestProcess_PermissionGating(t *testing.T) {
	d := NewDetector("user-1", testConfig(), nil)
	sample := models.AccelSample{X: 25, Y: 0, Z: 0, IncludesGravity: true, Timestamp: time.Now()}

	// По умолчанию разрешение unknown - детекция выключена
	assert.Equal(t, models.PermissionUnknown, d.Permission())
	assert.Equal(t, models.MotionEventKind(""), d.Process(sample))

	d.SetPermission(models.PermissionDenied)
	assert.Equal(t, models.MotionEventKind(""), d.Process(sample))

	d.SetPermission(models.PermissionGranted)
	assert.Equal(t, models.MotionShake, d.Process(sample))
}

func TestProcess_Debounce(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := grantedDetector(testConfig(), nil)
	d.SetClock(func() time.Time { return current })

	sample := models.AccelSample{X: 25, Y: 0, Z: 0, IncludesGravity: true}

	assert.Equal(t, models.MotionShake, d.Process(sample))

	// Внутри окна дебаунса события подавляются
	current = current.Add(time.Second)
	assert.Equal(t, models.MotionEventKind(""), d.Process(sample))

	// Подавляются и события другого вида
	current = current.Add(time.Second)
	drop := models.AccelSample{X: 0.1, Y: 0, Z: 0, IncludesGravity: true}
	assert.Equal(t, models.MotionEventKind(""), d.Process(drop))

	// После окна детекция возобновляется
	current = current.Add(2 * time.Second)
	assert.Equal(t, models.MotionShake, d.Process(sample))
}

func TestRegistry_PerUserDetectors(t *testing.T) {
	r := NewRegistry(testConfig(), nil)

	first := r.Detector("user-1")
	second := r.Detector("user-2")
	assert.NotSame(t, first, second)

	// Повторное обращение возвращает тот же детектор
	assert.Same(t, first, r.Detector("user-1"))

	// Разрешение одного пользователя не влияет на другого
	first.SetPermission(models.PermissionGranted)
	assert.Equal(t, models.PermissionUnknown, second.Permission())
}
