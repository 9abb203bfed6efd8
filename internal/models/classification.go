package models

import "time"

// Provenance - происхождение результата классификации
type Provenance string

const (
	ProvenanceModel    Provenance = "model"    // ответ внешней модели
	ProvenanceFallback Provenance = "fallback" // детерминированное правило
	ProvenanceCache    Provenance = "cache"    // попадание в кеш
)

// RiskFeatures - входные признаки классификатора риска
type RiskFeatures struct {
	Speed     float64   `json:"speed"` // км/ч
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	// Предыдущая позиция для оценки перемещения, если известна
	PrevLatitude  *float64 `json:"prev_latitude,omitempty"`
	PrevLongitude *float64 `json:"prev_longitude,omitempty"`
}

// ClassificationResult - результат классификации риска (эфемерный, кешируемый)
type ClassificationResult struct {
	RiskLevel  RiskTier   `json:"risk_level"`
	Confidence float64    `json:"confidence"` // [0,1]
	Reasoning  string     `json:"reasoning"`
	Provenance Provenance `json:"provenance"`
}
