package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/campusconnect/campus/internal/hub"
	"github.com/campusconnect/campus/pkg/log"
	"github.com/campusconnect/campus/pkg/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedWebSocket upgrades to the realtime feed. The client stays registered
// with the hub for the lifetime of the socket.
func (h *Handler) FeedWebSocket(c *gin.Context) {
	l := log.Ctx(c.Request.Context())

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(
		uuid.New().String(),
		middleware.GetUserID(c),
		middleware.GetSessionID(c),
		h.hub,
		conn,
		h.opts.WebSocket,
	)

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
