package consultation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SyncSphere7/smartwin-official/internal/api"
	"github.com/SyncSphere7/smartwin-official/internal/logger"
)

// Handler serves the operator side of consultation requests.
type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// List godoc
// @Summary      List consultation requests
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   Request
// @Router       /admin/consultations [get]
func (h *Handler) List(c *gin.Context) {
	reqs, err := h.service.List(c.Request.Context())
	if err != nil {
		logger.Error("list consultation requests failed", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load consultation requests"})
		return
	}
	c.JSON(http.StatusOK, reqs)
}

// UpdateStatus godoc
// @Summary      Move a consultation request
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                  true  "Request ID"
// @Param        request  body      UpdateStatusRequest  true  "New status"
// @Success      200      {object}  Request
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /admin/consultations/{id}/status [patch]
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid consultation id"})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, updated)
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "consultation request not found"})
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrStaleStatus):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("update consultation status failed", "consultation_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to update consultation request"})
	}
}
