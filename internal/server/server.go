package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SyncSphere7/smartwin-official/internal/assistant"
	"github.com/SyncSphere7/smartwin-official/internal/auth"
	"github.com/SyncSphere7/smartwin-official/internal/config"
	"github.com/SyncSphere7/smartwin-official/internal/consultation"
	"github.com/SyncSphere7/smartwin-official/internal/contact"
	"github.com/SyncSphere7/smartwin-official/internal/email"
	"github.com/SyncSphere7/smartwin-official/internal/payment"
	"github.com/SyncSphere7/smartwin-official/internal/ticket"
	"github.com/SyncSphere7/smartwin-official/internal/user"
)

// Handlers groups everything the router dispatches to.
type Handlers struct {
	Users         *user.Handler
	Access        user.Service
	Payments      *payment.Handler
	Consultations *consultation.Handler
	Tickets       *ticket.Handler
	Contact       *contact.Handler
	Assistant     *assistant.Handler
	Email         *email.Handler
}

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.Config
	limiters   []*RateLimiter
}

// Per-IP budgets. Gateway notifications arrive in bursts from a few
// egress addresses, so they get a separate, larger bucket.
const (
	publicRPS    = 2
	publicBurst  = 10
	webhookRPS   = 20
	webhookBurst = 100
	visitorTTL   = 3 * time.Minute
)

func New(cfg *config.Config, h Handlers, checks map[string]Check) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware(cfg.AppURL))

	publicLimiter := NewRateLimiter(publicRPS, publicBurst, visitorTTL)
	webhookLimiter := NewRateLimiter(webhookRPS, webhookBurst, visitorTTL)
	limited := RateLimitMiddleware(publicLimiter)
	webhookLimited := RateLimitMiddleware(webhookLimiter)

	router.GET("/health", Health(checks))
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	public := router.Group("/auth")
	public.Use(limited)
	{
		public.POST("/register", h.Users.Register)
		public.POST("/login", h.Users.Login)
		public.POST("/refresh", h.Users.RefreshToken)
	}

	router.GET("/api/payment-webhook", webhookLimited, h.Payments.Webhook)
	router.POST("/api/payment-webhook", webhookLimited, h.Payments.Webhook)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", h.Users.GetMe)
		protected.GET("/api/access", h.Users.GetAccess)
		protected.POST("/api/checkout", limited, h.Payments.Checkout)
		protected.POST("/api/verify-payment", limited, h.Payments.Verify)
		protected.GET("/api/payments", h.Payments.ListMine)
		protected.POST("/api/ai", limited, h.Assistant.Ask)
		protected.POST("/api/contact", limited, h.Contact.Submit)
		protected.GET("/api/dashboard/tickets", user.RequirePaid(h.Access), h.Tickets.Dashboard)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/users", h.Users.ListUsers)
		admin.PATCH("/users/:userID/paid", h.Users.SetPaid)
		admin.GET("/payments", h.Payments.ListAll)
		admin.GET("/consultations", h.Consultations.List)
		admin.PATCH("/consultations/:id/status", h.Consultations.UpdateStatus)
		admin.GET("/tickets", h.Tickets.List)
		admin.POST("/tickets", h.Tickets.Create)
		admin.PATCH("/tickets/:id/visibility", h.Tickets.ToggleVisibility)
		admin.GET("/contact-messages", h.Contact.List)
		admin.POST("/send-email", h.Email.Send)
	}

	return &Server{
		router:   router,
		config:   cfg,
		limiters: []*RateLimiter{publicLimiter, webhookLimiter},
	}
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Start(port string) error {
	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Outbound gateway calls may take up to GATEWAY_TIMEOUT.
		WriteTimeout: s.config.GatewayTimeout + 30*time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	for _, l := range s.limiters {
		l.Stop()
	}
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := allowedOrigin
		if origin == "" {
			origin = "*"
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+payment.SignatureHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
