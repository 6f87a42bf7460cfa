package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskpilot/internal/dto"
	apierrors "github.com/yukikurage/taskpilot/internal/errors"
	"github.com/yukikurage/taskpilot/internal/middleware"
	"github.com/yukikurage/taskpilot/internal/services"
)

// AIHandler exposes the text suggester.
type AIHandler struct {
	ai *services.AIService
}

func NewAIHandler(ai *services.AIService) *AIHandler {
	return &AIHandler{ai: ai}
}

// SuggestDescription drafts a task description from a title
func (h *AIHandler) SuggestDescription(c *gin.Context) {
	var req dto.SuggestDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	description, err := h.ai.SuggestDescription(c.Request.Context(), req.Title)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuggestDescriptionResponse{Description: description})
}

// WeeklySummary summarizes the completed tasks for a project manager
func (h *AIHandler) WeeklySummary(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	summary, err := h.ai.SummarizeWeek(c.Request.Context(), actor)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.WeeklySummaryResponse{
		Summary:  summary.Summary,
		Progress: summary.Progress,
	})
}
