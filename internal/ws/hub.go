package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub fans room updates out to connected clients. It is the push sink for
// the phase machine: delivery is fire-and-forget, a dead connection is
// dropped and never retried.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[uint]map[*websocket.Conn]bool),
	}
}

func (h *Hub) AddConnection(roomID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[roomID][conn] = true
	log.Debug().Uint("room_id", roomID).Int("clients", len(h.rooms[roomID])).Msg("ws client connected")
}

func (h *Hub) RemoveConnection(roomID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, conn)
		conn.Close()
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
		log.Debug().Uint("room_id", roomID).Msg("ws client disconnected")
	}
}

// NotifyRoom satisfies the phase machine's notifier collaborator.
func (h *Hub) NotifyRoom(roomID uint, event string, payload interface{}) {
	h.Broadcast(roomID, WSMessage{Type: event, Data: payload})
}

func (h *Hub) Broadcast(roomID uint, message WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Msg("ws marshal error")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[roomID]))
	for conn := range h.rooms[roomID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warn().Err(err).Uint("room_id", roomID).Msg("ws write error, dropping client")
			h.RemoveConnection(roomID, conn)
		}
	}
}
