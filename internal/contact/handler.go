package contact

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SyncSphere7/smartwin-official/internal/api"
	"github.com/SyncSphere7/smartwin-official/internal/auth"
	"github.com/SyncSphere7/smartwin-official/internal/logger"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Submit godoc
// @Summary      Contact support
// @Tags         contact
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      SubmitRequest  true  "Message"
// @Success      201      {object}  Message
// @Failure      400      {object}  api.ErrorResponse
// @Router       /api/contact [post]
func (h *Handler) Submit(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errs := api.ValidateStruct(req); errs != nil {
		api.RespondWithValidationErrors(c, errs)
		return
	}

	fromEmail, _ := auth.GetUserEmail(c)
	m, err := h.service.Submit(c.Request.Context(), userID, fromEmail, req)
	if err != nil {
		logger.Error("contact submission failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to send message, please try again"})
		return
	}
	c.JSON(http.StatusCreated, m)
}

// List godoc
// @Summary      List contact messages
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   Message
// @Router       /admin/contact-messages [get]
func (h *Handler) List(c *gin.Context) {
	msgs, err := h.service.List(c.Request.Context())
	if err != nil {
		logger.Error("list contact messages failed", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}
