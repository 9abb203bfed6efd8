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

type IncidentRepository struct {
	db *pgxpool.Pool
}

func NewIncidentRepository(db *pgxpool.Pool) service.IncidentRepository {
	return &IncidentRepository{db: db}
}

const incidentColumns = `
	id,
	user_id,
	ST_Y(location::geometry) as latitude,
	ST_X(location::geometry) as longitude,
	speed,
	risk_level,
	status,
	notes,
	detected_at,
	responded_at,
	resolved_at
`

// Create создает новую запись об инциденте в бд
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (user_id, location, speed, risk_level, status, notes)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326), $4, $5, $6, $7) RETURNING id, detected_at;
	`
	err := r.db.QueryRow(ctx, query,
		incident.UserID,
		incident.Longitude,
		incident.Latitude,
		incident.Speed,
		incident.RiskLevel,
		incident.Status,
		incident.Notes,
	).Scan(&incident.ID, &incident.DetectedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// GetByID возвращает инцидент по его UUID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	incident := &models.Incident{}
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1;`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&incident.ID,
		&incident.UserID,
		&incident.Latitude,
		&incident.Longitude,
		&incident.Speed,
		&incident.RiskLevel,
		&incident.Status,
		&incident.Notes,
		&incident.DetectedAt,
		&incident.RespondedAt,
		&incident.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// UpdateStatus сохраняет переход статуса вместе с его временными отметками
func (r *IncidentRepository) UpdateStatus(ctx context.Context, incident *models.Incident) error {
	query := `
		UPDATE incidents SET
			status = $1,
			notes = $2,
			responded_at = $3,
			resolved_at = $4
		WHERE id = $5;
	`
	cmdTag, err := r.db.Exec(ctx, query,
		incident.Status,
		incident.Notes,
		incident.RespondedAt,
		incident.ResolvedAt,
		incident.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update incident status: %w", err)
	}

	// Проверка, была ли обновлена хоть одна строка
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident with id %s not found for update", incident.ID)
	}
	return nil
}

// List возвращает список инцидентов с пагинацией, новые первыми
func (r *IncidentRepository) List(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	offset := (page - 1) * pageSize

	query := `SELECT ` + incidentColumns + ` FROM incidents ORDER BY detected_at DESC LIMIT $1 OFFSET $2;`
	rows, err := r.db.Query(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	return scanIncidents(rows)
}

// ListByUser возвращает инциденты одного пользователя
func (r *IncidentRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*models.Incident, error) {
	offset := (page - 1) * pageSize

	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE user_id = $1 ORDER BY detected_at DESC LIMIT $2 OFFSET $3;`
	rows, err := r.db.Query(ctx, query, userID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents by user: %w", err)
	}
	defer rows.Close()

	return scanIncidents(rows)
}

func scanIncidents(rows pgx.Rows) ([]*models.Incident, error) {
	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident := &models.Incident{}
		err := rows.Scan(
			&incident.ID,
			&incident.UserID,
			&incident.Latitude,
			&incident.Longitude,
			&incident.Speed,
			&incident.RiskLevel,
			&incident.Status,
			&incident.Notes,
			&incident.DetectedAt,
			&incident.RespondedAt,
			&incident.ResolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}
