package assistant

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SyncSphere7/smartwin-official/internal/logger"
)

const (
	ActionChat      = "chat"
	ActionSummarize = "summarize"
)

type Assistant interface {
	Chat(ctx context.Context, prompt string) (*Reply, error)
	Summarize(ctx context.Context, text string) (*Reply, error)
}

type Request struct {
	Action string `json:"action" binding:"omitempty,oneof=chat summarize"`
	Prompt string `json:"prompt" binding:"required,max=4000"`
}

type Handler struct {
	assistant Assistant
}

func NewHandler(a Assistant) *Handler {
	return &Handler{assistant: a}
}

// Ask godoc
// @Summary      Ask the assistant
// @Tags         assistant
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      Request  true  "Prompt"
// @Success      200      {object}  Reply
// @Failure      400      {object}  api.ErrorResponse
// @Failure      502      {object}  api.ErrorResponse
// @Failure      503      {object}  api.ErrorResponse
// @Router       /api/ai [post]
func (h *Handler) Ask(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	var (
		reply *Reply
		err   error
	)
	switch req.Action {
	case ActionSummarize:
		reply, err = h.assistant.Summarize(c.Request.Context(), req.Prompt)
	default:
		reply, err = h.assistant.Chat(c.Request.Context(), req.Prompt)
	}
	if err != nil {
		logger.Error("assistant request failed", "action", req.Action, "prompt_length", len(req.Prompt), "error", err)
		if errors.Is(err, ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "assistant is not available"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "assistant failed to respond"})
		return
	}

	c.JSON(http.StatusOK, reply)
}
