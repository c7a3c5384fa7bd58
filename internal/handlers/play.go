package handlers

import (
	"net/http"

	"github.com/zachjustice/richard-bday-sub001/internal/models"
	"github.com/zachjustice/richard-bday-sub001/internal/services"
	"github.com/zachjustice/richard-bday-sub001/internal/ws"

	"github.com/gin-gonic/gin"
)

// PlayHandler serves the participant-facing endpoints. Submissions are
// persisted here; the phase machine reacts to the persisted fact.
type PlayHandler struct {
	roomService       *services.RoomService
	submissionService *services.SubmissionService
	projector         *services.ProjectorService
	hub               *ws.Hub
}

func NewPlayHandler(roomService *services.RoomService, submissionService *services.SubmissionService, projector *services.ProjectorService, hub *ws.Hub) *PlayHandler {
	return &PlayHandler{
		roomService:       roomService,
		submissionService: submissionService,
		projector:         projector,
		hub:               hub,
	}
}

type PlayJoinRequest struct {
	Code     string `json:"code" binding:"required"`
	Nickname string `json:"nickname" binding:"required,min=1,max=100"`
	Token    string `json:"token"`
	Audience bool   `json:"audience"`
}

func (h *PlayHandler) Join(c *gin.Context) {
	var req PlayJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	role := models.RolePlayer
	if req.Audience {
		role = models.RoleAudience
	}

	result, err := h.roomService.JoinRoom(req.Code, req.Nickname, req.Token, role)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if !result.IsRejoin {
		h.hub.Broadcast(result.Room.ID, ws.WSMessage{
			Type: "participant_joined",
			Data: result.Participant,
		})
	}

	view, _ := h.projector.Project(&result.Room)
	c.JSON(http.StatusOK, gin.H{
		"participant": result.Participant,
		"is_rejoin":   result.IsRejoin,
		"room":        view,
	})
}

func (h *PlayHandler) Reconnect(c *gin.Context) {
	token := c.Query("token")
	code := c.Query("code")
	if token == "" || code == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "token and code required"})
		return
	}

	result, err := h.roomService.Reconnect(token, code)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	view, _ := h.projector.Project(&result.Room)
	c.JSON(http.StatusOK, gin.H{
		"participant": result.Participant,
		"is_rejoin":   true,
		"room":        view,
	})
}

func (h *PlayHandler) GetState(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "code required"})
		return
	}

	room, err := h.roomService.GetRoomByCode(code)
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

type PlayAnswerRequest struct {
	Code  string `json:"code" binding:"required"`
	Token string `json:"token" binding:"required"`
	Text  string `json:"text" binding:"required,min=1,max=500"`
}

func (h *PlayHandler) SubmitAnswer(c *gin.Context) {
	var req PlayAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	answer, err := h.submissionService.SubmitAnswer(req.Code, req.Token, req.Text)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer_id": answer.ID})
}

type PlayVoteRequest struct {
	Code     string `json:"code" binding:"required"`
	Token    string `json:"token" binding:"required"`
	AnswerID uint   `json:"answer_id" binding:"required"`
	Rank     *int   `json:"rank"`
	Stars    int    `json:"stars"`
}

func (h *PlayHandler) CastVote(c *gin.Context) {
	var req PlayVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	vote, err := h.submissionService.CastVote(req.Code, req.Token, services.VoteInput{
		AnswerID: req.AnswerID,
		Rank:     req.Rank,
		Stars:    req.Stars,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"vote_id": vote.ID})
}
