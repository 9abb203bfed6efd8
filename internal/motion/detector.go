package motion

import (
	"math"
	"sync"
	"time"

	"github.com/code-withabhi/safety-compass/internal/metrics"
	"github.com/code-withabhi/safety-compass/internal/models"
)

const standardGravity = 9.81 // м/с²

// Config - пороги и окно дебаунса детектора движения
type Config struct {
	DropThreshold  float64       // м/с², магнитуда ниже порога = свободное падение
	ShakeThreshold float64       // м/с², отклонение магнитуды от 1g
	Debounce       time.Duration // окно подавления после срабатывания
}

// Callback вызывается при обнаружении события; сам детектор инцидент не создает
type Callback func(userID string, kind models.MotionEventKind)

// Detector обрабатывает замеры акселерометра одного устройства.
// Детекция активна только при разрешении granted; после каждого срабатывания
// дальнейшие события подавляются на время Debounce.
type Detector struct {
	mu          sync.Mutex
	cfg         Config
	permission  models.MotionPermission
	lastTrigger time.Time
	callback    Callback
	userID      string
	now         func() time.Time
}

func NewDetector(userID string, cfg Config, callback Callback) *Detector {
	return &Detector{
		cfg:        cfg,
		permission: models.PermissionUnknown,
		callback:   callback,
		userID:     userID,
		now:        time.Now,
	}
}

// SetClock подменяет источник времени (для тестов)
func (d *Detector) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// SetPermission обновляет состояние разрешения на датчик движения
func (d *Detector) SetPermission(p models.MotionPermission) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.permission = p
}

// Permission возвращает текущее состояние разрешения
func (d *Detector) Permission() models.MotionPermission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.permission
}

// Process обрабатывает один замер. Возвращает обнаруженное событие или пустую
// строку. За один замер срабатывает не больше одного события, падение
// проверяется раньше тряски.
func (d *Detector) Process(sample models.AccelSample) models.MotionEventKind {
	d.mu.Lock()

	if d.permission != models.PermissionGranted {
		d.mu.Unlock()
		return ""
	}

	now := d.now()
	if !d.lastTrigger.IsZero() && now.Sub(d.lastTrigger) < d.cfg.Debounce {
		d.mu.Unlock()
		return ""
	}

	magnitude := math.Sqrt(sample.X*sample.X + sample.Y*sample.Y + sample.Z*sample.Z)

	var kind models.MotionEventKind
	switch {
	// Свободное падение различимо только с гравитацией в сигнале
	case sample.IncludesGravity && magnitude < d.cfg.DropThreshold:
		kind = models.MotionDrop
	case sample.IncludesGravity && math.Abs(magnitude-standardGravity) > d.cfg.ShakeThreshold:
		kind = models.MotionShake
	case !sample.IncludesGravity && magnitude > d.cfg.ShakeThreshold:
		kind = models.MotionShake
	default:
		d.mu.Unlock()
		return ""
	}

	d.lastTrigger = now
	callback := d.callback
	userID := d.userID
	d.mu.Unlock()

	metrics.MotionEvents.WithLabelValues(string(kind)).Inc()
	if callback != nil {
		callback(userID, kind)
	}
	return kind
}

// Registry хранит детекторы по пользователям (серверная модель
// состояния датчика каждого устройства)
type Registry struct {
	mu        sync.Mutex
	cfg       Config
	callback  Callback
	detectors map[string]*Detector
}

func NewRegistry(cfg Config, callback Callback) *Registry {
	return &Registry{
		cfg:       cfg,
		callback:  callback,
		detectors: make(map[string]*Detector),
	}
}

// Detector возвращает детектор пользователя, создавая его при первом обращении
func (r *Registry) Detector(userID string) *Detector {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.detectors[userID]
	if !ok {
		d = NewDetector(userID, r.cfg, r.callback)
		r.detectors[userID] = d
	}
	return d
}
