package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/MikeMC777/backoffice-resto/internal/delivery"
	"github.com/MikeMC777/backoffice-resto/internal/httpx"
	"github.com/MikeMC777/backoffice-resto/internal/logging"
	"github.com/MikeMC777/backoffice-resto/internal/realtime"
	"github.com/MikeMC777/backoffice-resto/internal/tracking"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// the dashboard is served from another origin in development
	CheckOrigin: func(*http.Request) bool { return true },
}

// GET /ws?topics=orders,drivers. Clients may also subscribe later by sending
// {"type":"subscribe","topic":"..."}.
func wsHandler(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var topics []string
		for _, t := range strings.Split(c.Query("topics"), ",") {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade")
			return
		}
		realtime.NewClient(hub, conn, topics...).Start()
	}
}

// GET /ws/tracking/:id follows one order: route overlay, driver position and
// delivery code countdown. The tracking session lives as long as at least one
// such connection is open.
func trackingWSHandler(hub *realtime.Hub, m *tracking.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		s, err := m.Open(c.Request.Context(), id)
		if err != nil {
			httpx.Fail(c, err, orderErrors...)
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			m.Release(id)
			logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade")
			return
		}
		client := realtime.NewClient(hub, conn, tracking.Topic(id), delivery.Topic(id))
		client.OnClose(func() { m.Release(id) })
		if client.Start() {
			hub.Publish(tracking.Topic(id), tracking.MessageType, s.View())
		}
	}
}
