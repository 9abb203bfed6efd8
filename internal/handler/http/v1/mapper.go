package v1

import (
	"time"

	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/code-withabhi/safety-compass/internal/service"
)

// DTOToPositionFix преобразует DTO фикса в доменную модель
func DTOToPositionFix(dto *PositionFixRequest) *models.PositionFix {
	if dto == nil {
		return nil
	}
	ts := dto.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &models.PositionFix{
		Latitude:  dto.Latitude,
		Longitude: dto.Longitude,
		Accuracy:  dto.Accuracy,
		Speed:     dto.Speed,
		Heading:   dto.Heading,
		Timestamp: ts,
	}
}

// DTOToContactModel преобразует DTO создания контакта в доменную модель
func DTOToContactModel(dto CreateContactRequest, userID string) *models.EmergencyContact {
	return &models.EmergencyContact{
		UserID:       userID,
		Name:         dto.Name,
		Phone:        dto.Phone,
		Email:        dto.Email,
		Relationship: dto.Relationship,
	}
}

// ModelToContactResponse преобразует доменную модель контакта в DTO для ответа
func ModelToContactResponse(model *models.EmergencyContact) *ContactResponse {
	return &ContactResponse{
		ID:           model.ID,
		Name:         model.Name,
		Phone:        model.Phone,
		Email:        model.Email,
		Relationship: model.Relationship,
		CreatedAt:    model.CreatedAt,
	}
}

// ModelsToContactResponses преобразует слайс моделей контактов в слайс DTO
func ModelsToContactResponses(models []*models.EmergencyContact) []*ContactResponse {
	responses := make([]*ContactResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToContactResponse(model)
	}
	return responses
}

// ModelToIncidentResponse преобразует доменную модель инцидента в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:          model.ID,
		UserID:      model.UserID,
		Latitude:    model.Latitude,
		Longitude:   model.Longitude,
		Speed:       model.Speed,
		RiskLevel:   string(model.RiskLevel),
		Status:      string(model.Status),
		Notes:       model.Notes,
		DetectedAt:  model.DetectedAt,
		RespondedAt: model.RespondedAt,
		ResolvedAt:  model.ResolvedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей инцидентов в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

// StatusToResponse преобразует снимок сессии в DTO для ответа
func StatusToResponse(status *service.SessionStatus) *SessionStatusResponse {
	return &SessionStatusResponse{
		Open:             status.Open,
		RemainingSeconds: status.RemainingSeconds,
		Deadline:         status.Deadline,
		Loading:          status.Loading,
		TriggerReason:    status.TriggerReason,
	}
}

// OutcomeToResponse преобразует итог пайплайна в DTO для ответа
func OutcomeToResponse(outcome *service.Outcome) *OutcomeResponse {
	resp := &OutcomeResponse{
		Status:  string(outcome.Status),
		Message: outcome.Message,
	}
	if outcome.Incident != nil {
		resp.Incident = ModelToIncidentResponse(outcome.Incident)
	}
	return resp
}
