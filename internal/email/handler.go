package email

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SyncSphere7/smartwin-official/internal/api"
	"github.com/SyncSphere7/smartwin-official/internal/logger"
	"github.com/SyncSphere7/smartwin-official/internal/metrics"
)

// Handler lets operators send a one-off email synchronously, bypassing the
// queue, so the provider message id can be returned.
type Handler struct {
	sender Sender
}

func NewHandler(sender Sender) *Handler {
	return &Handler{sender: sender}
}

// Send godoc
// @Summary      Send email
// @Description  Sends a message immediately through the email provider.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      Message  true  "Email"
// @Success      200      {object}  api.SendEmailResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      502      {object}  api.ErrorResponse
// @Failure      503      {object}  api.ErrorResponse
// @Router       /admin/send-email [post]
func (h *Handler) Send(c *gin.Context) {
	var msg Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: to, subject, html"})
		return
	}

	id, err := h.sender.Send(c.Request.Context(), msg)
	if err != nil {
		metrics.RecordEmail(KindAdminDirect, "failed")
		logger.Error("direct email send failed", "to", msg.To, "error", err)
		if errors.Is(err, ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "email sending is not configured"})
			return
		}
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "failed to send email"})
		return
	}

	metrics.RecordEmail(KindAdminDirect, "sent")
	logger.Info("direct email sent", "to", msg.To, "message_id", id)
	c.JSON(http.StatusOK, api.SendEmailResponse{Success: true, MessageID: id})
}
