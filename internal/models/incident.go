package models

import (
	"time"

	"github.com/google/uuid"
)

// RiskTier - уровень риска, присваивается один раз при создании инцидента
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// ValidRiskTier проверяет, что значение входит в известный набор уровней
func ValidRiskTier(t RiskTier) bool {
	switch t {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// IncidentStatus - статус инцидента, продвигается только вперед: pending -> responded -> resolved
type IncidentStatus string

const (
	StatusPending   IncidentStatus = "pending"
	StatusResponded IncidentStatus = "responded"
	StatusResolved  IncidentStatus = "resolved"
)

// Rank возвращает порядковый номер статуса для проверки монотонности
func (s IncidentStatus) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusResponded:
		return 1
	case StatusResolved:
		return 2
	}
	return -1
}

type Incident struct {
	ID          uuid.UUID      `json:"id"`
	UserID      string         `json:"user_id"`
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	Speed       float64        `json:"speed"` // км/ч, 0 если скорость неизвестна
	RiskLevel   RiskTier       `json:"risk_level"`
	Status      IncidentStatus `json:"status"`
	Notes       string         `json:"notes,omitempty"`
	DetectedAt  time.Time      `json:"detected_at"`
	RespondedAt *time.Time     `json:"responded_at,omitempty"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
}
