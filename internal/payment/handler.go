package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SyncSphere7/smartwin-official/internal/api"
	"github.com/SyncSphere7/smartwin-official/internal/auth"
	"github.com/SyncSphere7/smartwin-official/internal/gateway"
	"github.com/SyncSphere7/smartwin-official/internal/logger"
	"github.com/SyncSphere7/smartwin-official/internal/user"
)

const SignatureHeader = "X-Pesapal-Signature"

const (
	msgCheckoutFailed = "Payment could not be started. Please try again."
	msgVerifyFailed   = "Could not verify payment. Please contact support."
)

type ManualClaimer interface {
	ClaimManualPayment(ctx context.Context, userID int, method string, amount float64) (int, error)
}

type Handler struct {
	service       Service
	claims        ManualClaimer
	webhookSecret string
	defaultAmount float64
}

func NewHandler(service Service, claims ManualClaimer, webhookSecret string, defaultAmount float64) *Handler {
	return &Handler{
		service:       service,
		claims:        claims,
		webhookSecret: webhookSecret,
		defaultAmount: defaultAmount,
	}
}

// httpStatus maps workflow errors onto responses. The second value tells
// the caller whether trying again later can help.
func httpStatus(err error) (int, bool) {
	var gerr *gateway.Error
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidCurrency):
		return http.StatusBadRequest, false
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, false
	case errors.Is(err, ErrPersistence):
		return http.StatusInternalServerError, false
	case errors.As(err, &gerr):
		switch {
		case gerr.Retryable():
			return http.StatusServiceUnavailable, true
		case gerr.Kind == gateway.KindLookup:
			return http.StatusNotFound, false
		default:
			return http.StatusBadGateway, false
		}
	default:
		return http.StatusInternalServerError, false
	}
}

// Checkout godoc
// @Summary      Start checkout
// @Description  Creates a pending payment, submits the order to Pesapal and returns the hosted payment page.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      CheckoutRequest   true  "Checkout request"
// @Success      200      {object}  InitiateResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Failure      502      {object}  api.ErrorResponse
// @Failure      503      {object}  api.ErrorResponse
// @Router       /api/checkout [post]
func (h *Handler) Checkout(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID != 0 && req.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot start a payment for another user"})
		return
	}

	email := req.Email
	if email == "" {
		email, _ = auth.GetUserEmail(c)
	}
	amount := h.defaultAmount
	if req.Amount != nil {
		amount = *req.Amount
	}

	res, err := h.service.Initiate(c.Request.Context(), InitiateRequest{
		UserID:   userID,
		Email:    email,
		Amount:   amount,
		Currency: req.Currency,
	})
	if err != nil {
		status, retryable := httpStatus(err)
		if status == http.StatusBadRequest {
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(status, gin.H{"error": msgCheckoutFailed, "retryable": retryable})
		return
	}

	c.JSON(http.StatusOK, res)
}

// Verify serves both verification shapes: a tracking id reconciles a
// gateway payment, anything else is a manual payment claim.
//
// @Summary      Verify payment
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      VerifyRequest    true  "Tracking id or manual claim"
// @Success      200      {object}  ReconcileResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      503      {object}  api.ErrorResponse
// @Router       /api/verify-payment [post]
func (h *Handler) Verify(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if strings.TrimSpace(req.TrackingID) != "" {
		h.verifyTracking(c, userID, strings.TrimSpace(req.TrackingID))
		return
	}
	h.claimManual(c, userID, req)
}

func (h *Handler) verifyTracking(c *gin.Context, userID int, trackingID string) {
	ctx := c.Request.Context()

	p, err := h.service.Lookup(ctx, trackingID)
	if err == nil && p.UserID != userID && !auth.IsAdmin(c) {
		err = ErrNotFound
	}
	if err == nil {
		var res *ReconcileResult
		res, err = h.service.Reconcile(ctx, trackingID, SourcePoll)
		if err == nil {
			c.JSON(http.StatusOK, res)
			return
		}
	}

	status, retryable := httpStatus(err)
	if status == http.StatusNotFound {
		c.JSON(status, gin.H{"error": "payment not found"})
		return
	}
	logger.Error("payment verification failed", "tracking_id", trackingID, "user_id", userID, "error", err)
	c.JSON(status, gin.H{"error": msgVerifyFailed, "retryable": retryable})
}

func (h *Handler) claimManual(c *gin.Context, callerID int, req VerifyRequest) {
	target := req.UserID
	if target == 0 {
		target = callerID
	}
	if target != callerID && !auth.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot claim a payment for another user"})
		return
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "trackingId or paymentMethod is required"})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	id, err := h.claims.ClaimManualPayment(c.Request.Context(), target, req.PaymentMethod, req.Amount)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		logger.Error("manual payment claim failed", "user_id", target, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: msgVerifyFailed})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "consultationId": id})
}

// signingPayload is what a GET notification is signed over: the
// notification fields as JSON, in declaration order.
func (n Notification) signingPayload() []byte {
	data, _ := json.Marshal(n)
	return data
}

// Webhook receives gateway notifications. The notification only wakes up
// reconciliation; status always comes from the gateway itself. Unknown
// orders are acknowledged so the gateway stops retrying them. Every other
// failure answers 5xx so the notification is retried.
//
// @Summary      Pesapal IPN
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        OrderTrackingId         query     string  false  "Gateway tracking id"
// @Param        OrderNotificationType   query     string  false  "Notification type"
// @Param        OrderMerchantReference  query     string  false  "Merchant reference"
// @Param        X-Pesapal-Signature     header    string  false  "Hex HMAC-SHA256 of the notification"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Failure      502  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /api/payment-webhook [get]
// @Router       /api/payment-webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	var n Notification
	_ = c.ShouldBindQuery(&n)

	var payload []byte
	if c.Request.Method == http.MethodPost && c.Request.Body != nil {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"received": false, "error": "unreadable body"})
			return
		}
		if len(body) > 0 {
			payload = body
			var fromBody Notification
			if err := json.Unmarshal(body, &fromBody); err == nil && n.OrderTrackingID == "" {
				n = fromBody
			}
		}
	}
	if payload == nil {
		payload = n.signingPayload()
	}

	if h.webhookSecret != "" && !gateway.VerifySignature(h.webhookSecret, payload, c.GetHeader(SignatureHeader)) {
		logger.Warn("webhook signature rejected", "tracking_id", n.OrderTrackingID, "client_ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"received": false, "error": "invalid signature"})
		return
	}

	trackingID := strings.TrimSpace(n.OrderTrackingID)
	if trackingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"received": false, "error": "OrderTrackingId is required"})
		return
	}

	ack := gin.H{
		"received":               true,
		"orderNotificationType":  n.OrderNotificationType,
		"orderTrackingId":        trackingID,
		"orderMerchantReference": n.OrderMerchantReference,
	}

	res, err := h.service.Reconcile(c.Request.Context(), trackingID, SourceWebhook)
	switch {
	case err == nil:
		ack["status"] = res.Status
		c.JSON(http.StatusOK, ack)
	case errors.Is(err, ErrNotFound):
		logger.Error("webhook for unknown tracking id",
			"tracking_id", trackingID, "merchant_reference", n.OrderMerchantReference, "error", err)
		ack["status"] = "not_found"
		c.JSON(http.StatusOK, ack)
	case gateway.IsRetryable(err):
		logger.Warn("webhook reconcile timed out", "tracking_id", trackingID, "error", err)
		ack["status"] = "error"
		ack["retryable"] = true
		c.JSON(http.StatusServiceUnavailable, ack)
	case errors.Is(err, ErrPersistence):
		logger.Error("webhook reconcile hit ledger failure", "tracking_id", trackingID, "error", err)
		ack["status"] = "error"
		c.JSON(http.StatusInternalServerError, ack)
	default:
		// Auth and other gateway failures leave the payment pending; a
		// non-2xx reply makes the gateway deliver the notification again.
		logger.Error("webhook reconcile failed", "tracking_id", trackingID, "error", err)
		ack["status"] = "error"
		c.JSON(http.StatusBadGateway, ack)
	}
}

// ListMine godoc
// @Summary      My payments
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   Payment
// @Router       /api/payments [get]
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	payments, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		logger.Error("list payments failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load payments"})
		return
	}
	c.JSON(http.StatusOK, payments)
}

// ListAll godoc
// @Summary      List payments
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   WithUser
// @Failure      403  {object}  api.ErrorResponse
// @Router       /admin/payments [get]
func (h *Handler) ListAll(c *gin.Context) {
	payments, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		logger.Error("list all payments failed", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load payments"})
		return
	}
	c.JSON(http.StatusOK, payments)
}
