package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/code-withabhi/safety-compass/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContactRepository struct {
	db *pgxpool.Pool
}

func NewContactRepository(db *pgxpool.Pool) service.ContactRepository {
	return &ContactRepository{db: db}
}

// Create создает новый экстренный контакт
func (r *ContactRepository) Create(ctx context.Context, contact *models.EmergencyContact) error {
	query := `
		INSERT INTO emergency_contacts (user_id, name, phone, email, relationship)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at;
	`
	err := r.db.QueryRow(ctx, query,
		contact.UserID,
		contact.Name,
		contact.Phone,
		contact.Email,
		contact.Relationship,
	).Scan(&contact.ID, &contact.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create emergency contact: %w", err)
	}
	return nil
}

// GetByID возвращает контакт по UUID
func (r *ContactRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EmergencyContact, error) {
	contact := &models.EmergencyContact{}
	query := `
		SELECT id, user_id, name, phone, email, relationship, created_at
		FROM emergency_contacts
		WHERE id = $1;
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&contact.ID,
		&contact.UserID,
		&contact.Name,
		&contact.Phone,
		&contact.Email,
		&contact.Relationship,
		&contact.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("contact with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to get contact by id: %w", err)
	}
	return contact, nil
}

// ListByUser возвращает все контакты пользователя
func (r *ContactRepository) ListByUser(ctx context.Context, userID string) ([]*models.EmergencyContact, error) {
	query := `
		SELECT id, user_id, name, phone, email, relationship, created_at
		FROM emergency_contacts
		WHERE user_id = $1
		ORDER BY created_at;
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]*models.EmergencyContact, 0)
	for rows.Next() {
		contact := &models.EmergencyContact{}
		err := rows.Scan(
			&contact.ID,
			&contact.UserID,
			&contact.Name,
			&contact.Phone,
			&contact.Email,
			&contact.Relationship,
			&contact.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact row: %w", err)
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return contacts, nil
}

// Delete удаляет контакт пользователя (замена контакта = удалить и создать заново)
func (r *ContactRepository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	query := `DELETE FROM emergency_contacts WHERE id = $1 AND user_id = $2;`
	cmdTag, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("contact with id %s not found for delete", id)
	}
	return nil
}
