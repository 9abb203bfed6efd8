package v1

import (
	"time"

	"github.com/google/uuid"
)

// PositionFixRequest DTO с фиксом позиции от источника геолокации
// @Description DTO с фиксом позиции от источника геолокации
type PositionFixRequest struct {
	Latitude  float64   `json:"latitude" validate:"latitude"`
	Longitude float64   `json:"longitude" validate:"longitude"`
	Accuracy  float64   `json:"accuracy" validate:"gte=0"`
	Speed     float64   `json:"speed" validate:"gte=0"` // км/ч, 0 если неизвестна
	Heading   float64   `json:"heading" validate:"gte=0,lte=360"`
	Timestamp time.Time `json:"timestamp"`
}

// OpenSessionRequest DTO для открытия сессии подтверждения
// @Description DTO для открытия сессии подтверждения
type OpenSessionRequest struct {
	Fix    *PositionFixRequest `json:"fix,omitempty"`
	Reason string              `json:"reason" validate:"omitempty,oneof=manual shake drop"`
}

// SessionStatusResponse DTO состояния сессии подтверждения
// @Description DTO состояния сессии подтверждения
type SessionStatusResponse struct {
	Open             bool      `json:"open"`
	RemainingSeconds float64   `json:"remaining_seconds"`
	Deadline         time.Time `json:"deadline,omitempty"`
	Loading          bool      `json:"loading"`
	TriggerReason    string    `json:"trigger_reason,omitempty"`
}

// OutcomeResponse DTO агрегированного итога сабмита
// @Description DTO агрегированного итога сабмита
type OutcomeResponse struct {
	Status   string            `json:"status"`
	Message  string            `json:"message"`
	Incident *IncidentResponse `json:"incident,omitempty"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID          uuid.UUID  `json:"id"`
	UserID      string     `json:"user_id"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Speed       float64    `json:"speed"`
	RiskLevel   string     `json:"risk_level"`
	Status      string     `json:"status"`
	Notes       string     `json:"notes,omitempty"`
	DetectedAt  time.Time  `json:"detected_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// UpdateIncidentStatusRequest DTO перехода статуса инцидента
// @Description DTO перехода статуса инцидента
type UpdateIncidentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=responded resolved"`
	Notes  string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// CreateContactRequest DTO для создания экстренного контакта
// @Description DTO для создания экстренного контакта
type CreateContactRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=255"`
	Phone        string `json:"phone" validate:"required_without=Email,omitempty,min=5,max=20"`
	Email        string `json:"email" validate:"required_without=Phone,omitempty,email"`
	Relationship string `json:"relationship,omitempty" validate:"omitempty,max=100"`
}

// ContactResponse DTO для ответа с информацией о контакте
// @Description DTO для ответа с информацией о контакте
type ContactResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Relationship string    `json:"relationship,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AccelSampleRequest DTO одного замера акселерометра
// @Description DTO одного замера акселерометра
type AccelSampleRequest struct {
	X               float64   `json:"x"`
	Y               float64   `json:"y"`
	Z               float64   `json:"z"`
	IncludesGravity bool      `json:"includes_gravity"`
	Timestamp       time.Time `json:"timestamp"`
}

// MotionSamplesRequest DTO пакета замеров акселерометра
// @Description DTO пакета замеров акселерометра
type MotionSamplesRequest struct {
	Samples []AccelSampleRequest `json:"samples" validate:"required,min=1,max=200,dive"`
}

// MotionSamplesResponse DTO с обнаруженными событиями движения
// @Description DTO с обнаруженными событиями движения
type MotionSamplesResponse struct {
	Events []string `json:"events"`
}

// MotionPermissionRequest DTO состояния разрешения на датчик движения
// @Description DTO состояния разрешения на датчик движения
type MotionPermissionRequest struct {
	State string `json:"state" validate:"required,oneof=unknown prompt granted denied"`
}
