package ticket

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SyncSphere7/smartwin-official/internal/api"
	"github.com/SyncSphere7/smartwin-official/internal/logger"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Create godoc
// @Summary      Create ticket
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      CreateRequest  true  "Ticket"
// @Success      201      {object}  Ticket
// @Failure      400      {object}  api.ErrorResponse
// @Router       /admin/tickets [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errs := api.ValidateStruct(req); errs != nil {
		api.RespondWithValidationErrors(c, errs)
		return
	}

	t, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		logger.Error("create ticket failed", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to create ticket"})
		return
	}
	c.JSON(http.StatusCreated, t)
}

// List godoc
// @Summary      List tickets
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   Ticket
// @Router       /admin/tickets [get]
func (h *Handler) List(c *gin.Context) {
	tickets, err := h.service.List(c.Request.Context())
	if err != nil {
		logger.Error("list tickets failed", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load tickets"})
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// ToggleVisibility godoc
// @Summary      Toggle ticket visibility
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Ticket ID"
// @Success      200  {object}  Ticket
// @Failure      404  {object}  api.ErrorResponse
// @Router       /admin/tickets/{id}/visibility [patch]
func (h *Handler) ToggleVisibility(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	t, err := h.service.ToggleVisibility(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		return
	}
	if err != nil {
		logger.Error("toggle ticket visibility failed", "ticket_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to update ticket"})
		return
	}
	c.JSON(http.StatusOK, t)
}

// Dashboard serves paid members. The paywall check happens in middleware.
//
// @Summary      Paid dashboard
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Dashboard
// @Failure      402  {object}  api.ErrorResponse
// @Router       /api/dashboard/tickets [get]
func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		logger.Error("load dashboard failed", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load dashboard"})
		return
	}
	c.JSON(http.StatusOK, d)
}
