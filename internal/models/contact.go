package models

import (
	"time"

	"github.com/google/uuid"
)

// EmergencyContact - экстренный контакт пользователя.
// Должен иметь хотя бы один канал связи: телефон или email.
type EmergencyContact struct {
	ID           uuid.UUID `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Relationship string    `json:"relationship,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Reachable сообщает, есть ли у контакта хотя бы один канал доставки
func (c *EmergencyContact) Reachable() bool {
	return c.Phone != "" || c.Email != ""
}
