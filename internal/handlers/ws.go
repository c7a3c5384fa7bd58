package handlers

import (
	"net/http"

	"github.com/zachjustice/richard-bday-sub001/internal/services"
	"github.com/zachjustice/richard-bday-sub001/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type WSHandler struct {
	roomService *services.RoomService
	hub         *ws.Hub
}

func NewWSHandler(roomService *services.RoomService, hub *ws.Hub) *WSHandler {
	return &WSHandler{roomService: roomService, hub: hub}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *WSHandler) HandleRoomWebSocket(c *gin.Context) {
	code := c.Param("code")
	room, err := h.roomService.GetRoomByCode(code)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade error")
		return
	}

	h.hub.AddConnection(room.ID, conn)
	defer h.hub.RemoveConnection(room.ID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
