package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/SyncSphere7/smartwin-official/internal/alert"
	"github.com/SyncSphere7/smartwin-official/internal/assistant"
	"github.com/SyncSphere7/smartwin-official/internal/config"
	"github.com/SyncSphere7/smartwin-official/internal/consultation"
	"github.com/SyncSphere7/smartwin-official/internal/contact"
	"github.com/SyncSphere7/smartwin-official/internal/email"
	"github.com/SyncSphere7/smartwin-official/internal/events"
	"github.com/SyncSphere7/smartwin-official/internal/gateway"
	"github.com/SyncSphere7/smartwin-official/internal/logger"
	"github.com/SyncSphere7/smartwin-official/internal/payment"
	"github.com/SyncSphere7/smartwin-official/internal/server"
	"github.com/SyncSphere7/smartwin-official/internal/ticket"
	"github.com/SyncSphere7/smartwin-official/internal/user"
)

// App holds the wired services shared by the API server and the
// operator CLI.
type App struct {
	Config  *config.Config
	DB      *sqlx.DB
	Redis   *redis.Client
	Sender  *email.ResendSender
	Emails  *email.Queue
	Events  events.Publisher
	Gateway *gateway.CachedClient

	Users         user.Service
	Payments      payment.Service
	Consultations consultation.Service
	Tickets       ticket.Service
	Contact       contact.Service
	Assistant     *assistant.Client
}

// New wires every service. cache backs the gateway token and IPN id.
func New(cfg *config.Config, database *sqlx.DB, rdb *redis.Client, cache gateway.Cache) (*App, error) {
	a := &App{Config: cfg, DB: database, Redis: rdb}

	a.Sender = email.NewResendSender(cfg.ResendAPIURL, cfg.ResendAPIKey, cfg.EmailFrom)
	a.Emails = email.NewQueue(rdb, a.Sender)
	templates := email.NewTemplates(cfg.AppURL, cfg.SupportEmail)

	if len(cfg.KafkaBrokers) > 0 {
		pub, err := events.NewKafkaPublisher(cfg.KafkaBrokers)
		if err != nil {
			return nil, fmt.Errorf("events: %w", err)
		}
		a.Events = pub
	} else {
		a.Events = events.NoopPublisher{}
	}

	var alerts alert.Notifier = alert.NoopNotifier{}
	if cfg.TelegramBotToken != "" && cfg.TelegramAdminChatID != 0 {
		n, err := alert.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramAdminChatID)
		if err != nil {
			// Alerts are optional; the service still runs without them.
			logger.Error("telegram alerts disabled", "error", err)
		} else {
			alerts = n
		}
	}

	pesapal := gateway.NewPesapalClient(cfg.PesapalAPIURL, cfg.PesapalConsumerKey, cfg.PesapalConsumerSecret, cfg.GatewayTimeout)
	a.Gateway = gateway.NewCachedClient(pesapal, cache)

	userRepo := user.NewRepository(database)
	a.Users = user.NewService(userRepo, cfg.JWTSecret, a.Emails, templates, user.Pricing{
		Price:          cfg.AccessPrice,
		Currency:       cfg.AccessCurrency,
		BitcoinAddress: cfg.BitcoinAddress,
	})

	a.Consultations = consultation.NewService(
		consultation.NewRepository(database),
		userRepo,
		a.Emails,
		templates,
		alerts,
		a.Events,
		consultation.Settings{AdminEmail: cfg.AdminEmail, Currency: cfg.AccessCurrency},
	)

	a.Payments = payment.NewService(payment.Dependencies{
		Repo:          payment.NewRepository(database),
		Users:         userRepo,
		Gateway:       a.Gateway,
		Consultations: a.Consultations,
		Mailer:        a.Emails,
		Templates:     templates,
		Alerts:        alerts,
		Events:        a.Events,
	}, payment.Settings{
		CallbackURL:     cfg.CallbackURL(),
		WebhookURL:      cfg.WebhookURL(),
		IPNID:           cfg.PesapalIPNID,
		DefaultCurrency: cfg.AccessCurrency,
		AdminEmail:      cfg.AdminEmail,
	})

	a.Assistant = assistant.NewClient(cfg.OpenRouterAPIURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.AppURL)
	a.Tickets = ticket.NewService(ticket.NewRepository(database), a.Assistant)
	a.Contact = contact.NewService(contact.NewRepository(database), a.Emails, templates, cfg.AdminEmail)

	return a, nil
}

func (a *App) Server() *server.Server {
	return server.New(a.Config, server.Handlers{
		Users:         user.NewHandler(a.Users),
		Access:        a.Users,
		Payments:      payment.NewHandler(a.Payments, a.Consultations, a.Config.PesapalWebhookSecret, a.Config.AccessPrice),
		Consultations: consultation.NewHandler(a.Consultations),
		Tickets:       ticket.NewHandler(a.Tickets),
		Contact:       contact.NewHandler(a.Contact),
		Assistant:     assistant.NewHandler(a.Assistant),
		Email:         email.NewHandler(a.Sender),
	}, map[string]server.Check{
		"postgres": a.DB.PingContext,
		"redis": func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		},
	})
}

func (a *App) Close() {
	if err := a.Events.Close(); err != nil {
		logger.Error("close event publisher", "error", err)
	}
	if err := a.Emails.Close(); err != nil {
		logger.Error("close email queue", "error", err)
	}
}
