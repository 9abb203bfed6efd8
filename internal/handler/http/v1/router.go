package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Маршрут Health-check (без аутентификации)
	api.GET("/system/health", h.healthCheck)

	authed := api.Group("")
	authed.Use(JWTAuthMiddleware(h.cfg, h.logger))

	// Сессия подтверждения аварии
	session := authed.Group("/session")
	{
		session.POST("", h.openSession)
		session.GET("", h.sessionStatus)
		session.POST("/confirm", h.confirmSession)
		session.POST("/cancel", h.cancelSession)
	}

	// Источник позиции
	authed.PUT("/position", h.updatePosition)

	// Датчик движения
	motion := authed.Group("/motion")
	{
		motion.POST("/samples", h.ingestMotionSamples)
		motion.POST("/permission", h.setMotionPermission)
	}

	// Экстренные контакты
	contacts := authed.Group("/contacts")
	{
		contacts.POST("", h.createContact)
		contacts.GET("", h.listContacts)
		contacts.DELETE("/:id", h.deleteContact)
	}

	// Инциденты: просмотр для владельца, триаж для оператора
	incidents := authed.Group("/incidents")
	{
		incidents.GET("", h.listIncidents)
		incidents.GET("/feed", AdminOnlyMiddleware(), h.incidentFeed)
		incidents.GET("/:id", h.getIncident)
		incidents.PATCH("/:id/status", AdminOnlyMiddleware(), h.updateIncidentStatus)
	}
}
