package v1

import (
	"context"
	"net/http"

	"github.com/code-withabhi/safety-compass/internal/events"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// @Summary Live incident feed
// @Description Websocket stream of incident lifecycle events for the admin view. Pass the auth token as ?token=.
// @Tags Incidents
// @Security BearerAuth
// @Success 101 "Switching Protocols"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Admin role required"
// @Router /incidents/feed [get]
func (h *Handler) incidentFeed(c *gin.Context) {
	log := h.logger.WithField("method", "incidentFeed")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Читающая горутина замечает отключение клиента
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pubsub := h.redisClient.Subscribe(ctx, events.PubSubChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.WithError(err).Debug("Websocket write failed, closing feed")
				return
			}
		}
	}
}
