package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/code-withabhi/safety-compass/internal/config"
	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/code-withabhi/safety-compass/internal/motion"
	"github.com/code-withabhi/safety-compass/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	sessions    service.SessionService
	incidents   service.IncidentService
	contacts    service.ContactService
	positions   service.PositionService
	motion      *motion.Registry
	redisClient *redis.Client
	logger      *logrus.Logger
	validate    *validator.Validate
	cfg         *config.Config
}

func NewHandler(
	sessions service.SessionService,
	incidents service.IncidentService,
	contacts service.ContactService,
	positions service.PositionService,
	motionRegistry *motion.Registry,
	redisClient *redis.Client,
	logger *logrus.Logger,
	cfg *config.Config,
) *Handler {
	return &Handler{
		sessions:    sessions,
		incidents:   incidents,
		contacts:    contacts,
		positions:   positions,
		motion:      motionRegistry,
		redisClient: redisClient,
		logger:      logger,
		validate:    validator.New(),
		cfg:         cfg,
	}
}

// @Summary Open a confirmation session
// @Description Open the accident confirmation countdown for the current user. Requires a position fix (inline or recently reported).
// @Tags Session
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param session body OpenSessionRequest true "Session open request"
// @Success 201 {object} SessionStatusResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Session already open"
// @Failure 412 {object} map[string]string "No position fix or no reachable contacts"
// @Router /session [post]
func (h *Handler) openSession(c *gin.Context) {
	userID, _ := identity(c)
	log := h.logger.WithField("method", "openSession").WithField("user_id", userID)

	var input OpenSessionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reason := input.Reason
	if reason == "" {
		reason = "manual"
	}

	status, err := h.sessions.Open(c.Request.Context(), userID, DTOToPositionFix(input.Fix), reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionOpen):
			c.JSON(http.StatusConflict, gin.H{"error": "confirmation session already open"})
		case errors.Is(err, service.ErrNoPositionFix):
			c.JSON(http.StatusPreconditionFailed, gin.H{"error": "no current position fix available"})
		case errors.Is(err, service.ErrNoReachableContacts):
			c.JSON(http.StatusPreconditionFailed, gin.H{"error": "no emergency contacts with a reachable channel"})
		default:
			log.WithError(err).Error("Failed to open session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusCreated, StatusToResponse(status))
}

// @Summary Confirm the open session
// @Description Explicitly confirm the accident; runs the submission pipeline and closes the session.
// @Tags Session
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} OutcomeResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "No open session"
// @Failure 502 {object} map[string]string "Submission failed"
// @Router /session/confirm [post]
func (h *Handler) confirmSession(c *gin.Context) {
	userID, _ := identity(c)
	log := h.logger.WithField("method", "confirmSession").WithField("user_id", userID)

	outcome, err := h.sessions.Confirm(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoSession):
			c.JSON(http.StatusNotFound, gin.H{"error": "no open confirmation session"})
			return
		case errors.Is(err, service.ErrDuplicateSubmission):
			// Страховочный барьер, не ошибка пользователя
			log.Info("Duplicate confirm suppressed")
			c.JSON(http.StatusOK, OutcomeResponse{Status: "suppressed", Message: "submission already handled"})
			return
		}
		if outcome != nil {
			c.JSON(http.StatusBadGateway, OutcomeToResponse(outcome))
			return
		}
		log.WithError(err).Error("Failed to confirm session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, OutcomeToResponse(outcome))
}

// @Summary Cancel the open session
// @Description Cancel the countdown before it fires; a no-op once confirmation has started.
// @Tags Session
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "No open session"
// @Router /session/cancel [post]
func (h *Handler) cancelSession(c *gin.Context) {
	userID, _ := identity(c)

	if err := h.sessions.Cancel(c.Request.Context(), userID); err != nil {
		if errors.Is(err, service.ErrNoSession) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no open confirmation session"})
			return
		}
		h.logger.WithError(err).Error("Failed to cancel session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Get session status
// @Description Get the current confirmation session status with remaining countdown seconds.
// @Tags Session
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SessionStatusResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /session [get]
func (h *Handler) sessionStatus(c *gin.Context) {
	userID, _ := identity(c)
	status := h.sessions.Status(c.Request.Context(), userID)
	c.JSON(http.StatusOK, StatusToResponse(status))
}

// @Summary Report a position fix
// @Description Store the latest known position for the current user.
// @Tags Position
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param fix body PositionFixRequest true "Position fix"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /position [put]
func (h *Handler) updatePosition(c *gin.Context) {
	userID, _ := identity(c)
	log := h.logger.WithField("method", "updatePosition").WithField("user_id", userID)

	var input PositionFixRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.positions.Update(c.Request.Context(), userID, DTOToPositionFix(&input)); err != nil {
		log.WithError(err).Error("Failed to store position fix")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Ingest accelerometer samples
// @Description Feed a batch of accelerometer samples into the motion detector. Detected drop/shake events open a confirmation session.
// @Tags Motion
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param samples body MotionSamplesRequest true "Accelerometer sample batch"
// @Success 200 {object} MotionSamplesResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /motion/samples [post]
func (h *Handler) ingestMotionSamples(c *gin.Context) {
	userID, _ := identity(c)
	log := h.logger.WithField("method", "ingestMotionSamples").WithField("user_id", userID)

	var input MotionSamplesRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	detector := h.motion.Detector(userID)
	events := make([]string, 0)
	for _, s := range input.Samples {
		kind := detector.Process(models.AccelSample{
			X:               s.X,
			Y:               s.Y,
			Z:               s.Z,
			IncludesGravity: s.IncludesGravity,
			Timestamp:       s.Timestamp,
		})
		if kind != "" {
			events = append(events, string(kind))
		}
	}

	c.JSON(http.StatusOK, MotionSamplesResponse{Events: events})
}

// @Summary Update motion sensor permission
// @Description Report the motion sensor permission state for the current device. Detection is disabled until permission is granted.
// @Tags Motion
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param permission body MotionPermissionRequest true "Permission state"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /motion/permission [post]
func (h *Handler) setMotionPermission(c *gin.Context) {
	userID, _ := identity(c)
	log := h.logger.WithField("method", "setMotionPermission").WithField("user_id", userID)

	var input MotionPermissionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.motion.Detector(userID).SetPermission(models.MotionPermission(input.State))
	c.Status(http.StatusNoContent)
}

// @Summary Create an emergency contact
// @Description Create an emergency contact for the current user. At least one of phone/email is required.
// @Tags Contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param contact body CreateContactRequest true "Contact creation request"
// @Success 201 {object} ContactResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /contacts [post]
func (h *Handler) createContact(c *gin.Context) {
	userID, _ := identity(c)
	log := h.logger.WithField("method", "createContact").WithField("user_id", userID)

	var input CreateContactRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	model := DTOToContactModel(input, userID)
	if err := h.contacts.CreateContact(c.Request.Context(), model); err != nil {
		log.WithError(err).Error("Failed to create contact in service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, ModelToContactResponse(model))
}

// @Summary List emergency contacts
// @Description List the current user's emergency contacts.
// @Tags Contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {array} ContactResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /contacts [get]
func (h *Handler) listContacts(c *gin.Context) {
	userID, _ := identity(c)

	contacts, err := h.contacts.ListContacts(c.Request.Context(), userID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list contacts from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToContactResponses(contacts))
}

// @Summary Delete an emergency contact
// @Description Delete one of the current user's emergency contacts.
// @Tags Contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Contact ID"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid contact ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /contacts/{id} [delete]
func (h *Handler) deleteContact(c *gin.Context) {
	userID, _ := identity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contact ID"})
		return
	}

	if err := h.contacts.DeleteContact(c.Request.Context(), id, userID); err != nil {
		h.logger.WithError(err).Warn("Failed to delete contact in service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete contact"})
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary List incidents
// @Description List the current user's incidents; operators with the admin role see all incidents with ?all=1.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Param all query int false "Set to 1 to list all incidents (admin only)"
// @Success 200 {array} IncidentResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	userID, isAdmin := identity(c)
	log := h.logger.WithField("method", "listIncidents")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	var (
		incidents []*models.Incident
		err       error
	)
	if isAdmin && c.Query("all") == "1" {
		incidents, err = h.incidents.ListIncidents(c.Request.Context(), page, pageSize)
	} else {
		incidents, err = h.incidents.ListUserIncidents(c.Request.Context(), userID, page, pageSize)
	}
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident by ID
// @Description Get a single incident. Users see only their own incidents; admins see all.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	userID, isAdmin := identity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.incidents.GetIncident(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from service")
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}

	// Чужой инцидент неотличим от несуществующего
	if incident.UserID != userID && !isAdmin {
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}

	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Update incident status
// @Description Advance an incident's status (pending -> responded -> resolved). Admin role required; status never regresses.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Param transition body UpdateIncidentStatusRequest true "Status transition request"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID or request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Admin role required"
// @Failure 409 {object} map[string]string "Invalid status transition"
// @Router /incidents/{id}/status [patch]
func (h *Handler) updateIncidentStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "updateIncidentStatus").WithField("id", id)

	var input UpdateIncidentStatusRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident, err := h.incidents.UpdateStatus(c.Request.Context(), id, models.IncidentStatus(input.Status), input.Notes)
	if err != nil {
		if errors.Is(err, service.ErrStatusTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.WithError(err).Error("Failed to update incident status in service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
