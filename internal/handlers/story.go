package handlers

import (
	"net/http"
	"strconv"

	"github.com/zachjustice/richard-bday-sub001/internal/services"

	"github.com/gin-gonic/gin"
)

type StoryHandler struct {
	storyService *services.StoryService
}

func NewStoryHandler(storyService *services.StoryService) *StoryHandler {
	return &StoryHandler{storyService: storyService}
}

func (h *StoryHandler) ListStories(c *gin.Context) {
	stories, err := h.storyService.ListStories()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, stories)
}

func (h *StoryHandler) GetStory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid story id"})
		return
	}

	story, err := h.storyService.GetStory(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, story)
}

type CreateStoryRequest struct {
	Title  string                `json:"title" binding:"required,max=255"`
	Text   string                `json:"text" binding:"required"`
	Blanks []services.BlankInput `json:"blanks" binding:"required,min=1"`
}

func (h *StoryHandler) CreateStory(c *gin.Context) {
	var req CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	story, err := h.storyService.CreateStory(req.Title, req.Text, req.Blanks)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, story)
}
