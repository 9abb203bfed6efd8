package models

import "time"

// MotionEventKind - тип события, обнаруженного по данным акселерометра
type MotionEventKind string

const (
	MotionDrop  MotionEventKind = "drop"
	MotionShake MotionEventKind = "shake"
)

// MotionPermission - состояние разрешения на доступ к датчику движения
type MotionPermission string

const (
	PermissionUnknown MotionPermission = "unknown"
	PermissionPrompt  MotionPermission = "prompt"
	PermissionGranted MotionPermission = "granted"
	PermissionDenied  MotionPermission = "denied"
)

// AccelSample - один замер трёхосевого акселерометра.
// IncludesGravity=true означает, что в значения входит гравитация.
type AccelSample struct {
	X               float64   `json:"x"`
	Y               float64   `json:"y"`
	Z               float64   `json:"z"`
	IncludesGravity bool      `json:"includes_gravity"`
	Timestamp       time.Time `json:"timestamp"`
}
