package handlers

import (
	"net/http"
	"strconv"

	"github.com/zachjustice/richard-bday-sub001/internal/services"

	"github.com/gin-gonic/gin"
)

// RoomHandler serves the creator-facing room endpoints: create, configure,
// start a game, and drive the manual phase edges.
type RoomHandler struct {
	roomService  *services.RoomService
	phaseService *services.PhaseService
	projector    *services.ProjectorService
}

func NewRoomHandler(roomService *services.RoomService, phaseService *services.PhaseService, projector *services.ProjectorService) *RoomHandler {
	return &RoomHandler{roomService: roomService, phaseService: phaseService, projector: projector}
}

func creatorID(c *gin.Context) uint {
	return c.GetUint("creator_id")
}

func (h *RoomHandler) roomID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room id"})
		return 0, false
	}
	return uint(id), true
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var settings services.RoomSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	room, err := h.roomService.CreateRoom(creatorID(c), settings)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	id, ok := h.roomID(c)
	if !ok {
		return
	}

	room, err := h.roomService.GetCreatorRoom(id, creatorID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	view, err := h.projector.Project(room)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *RoomHandler) UpdateSettings(c *gin.Context) {
	id, ok := h.roomID(c)
	if !ok {
		return
	}

	var settings services.RoomSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	room, err := h.roomService.UpdateSettings(id, creatorID(c), settings)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, room)
}

type StartGameRequest struct {
	StoryID uint `json:"story_id" binding:"required"`
}

func (h *RoomHandler) StartGame(c *gin.Context) {
	id, ok := h.roomID(c)
	if !ok {
		return
	}

	if _, err := h.roomService.GetCreatorRoom(id, creatorID(c)); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	var req StartGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	game, err := h.phaseService.StartGame(id, req.StoryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, game)
}

func (h *RoomHandler) CloseRoom(c *gin.Context) {
	id, ok := h.roomID(c)
	if !ok {
		return
	}

	if _, err := h.roomService.GetCreatorRoom(id, creatorID(c)); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.phaseService.CloseRoom(id); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "room closed"})
}

func (h *RoomHandler) NextRound(c *gin.Context) {
	id, ok := h.roomID(c)
	if !ok {
		return
	}

	if _, err := h.roomService.GetCreatorRoom(id, creatorID(c)); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.phaseService.NextRound(id); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "round advanced"})
}

func (h *RoomHandler) EndGame(c *gin.Context) {
	id, ok := h.roomID(c)
	if !ok {
		return
	}

	if _, err := h.roomService.GetCreatorRoom(id, creatorID(c)); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.phaseService.EndGame(id); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "game ended"})
}
