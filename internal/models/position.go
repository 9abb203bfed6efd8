package models

import "time"

// PositionFix - последняя известная позиция пользователя от источника геолокации
type PositionFix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy,omitempty"` // метры
	Speed     float64   `json:"speed,omitempty"`    // км/ч, 0 если неизвестна
	Heading   float64   `json:"heading,omitempty"`  // градусы
	Timestamp time.Time `json:"timestamp"`
}
