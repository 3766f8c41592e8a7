package bootstrap

import (
	"context"
	"log"

	"atomics-registration-be/internal/config"
	"atomics-registration-be/internal/controller"
	"atomics-registration-be/internal/entity"
	"atomics-registration-be/internal/handler"
	"atomics-registration-be/internal/pkg/logger"
	"atomics-registration-be/internal/pkg/mailer"
	"atomics-registration-be/internal/pkg/serverutils"
	"atomics-registration-be/internal/repository/memory"
	"atomics-registration-be/internal/repository/unitofwork"
	"atomics-registration-be/internal/service"
	"atomics-registration-be/internal/websocket"
	"atomics-registration-be/pkg/gateway"
	"atomics-registration-be/pkg/idempotency"

	pktNats "atomics-registration-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AcademyController    controller.IRegistrationController
	TournamentController controller.IRegistrationController
	PaymentController    controller.IPaymentController
	AdminController      controller.IAdminController

	// Background services, started by main
	ConsumerService     service.IConsumerService
	NotificationService *service.NotificationService
	ReconcileService    service.IReconcileService

	// Admin live feed
	FeedHandler  *handler.FeedHandler
	WebSocketHub *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires the application. db may be nil when cfg.Database.Driver is "memory".
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	var uowFactory unitofwork.RepositoryFactory
	if cfg.Database.Driver == "memory" || db == nil {
		log.Printf("[WARN] Using in-memory registration store, data is lost on restart")
		uowFactory = memory.NewRegistrationStore()
	} else {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	}
	statsCache := memory.NewStatsCache(cfg.Cache.StatsTTL)

	var emailService mailer.IEmailService
	if cfg.SMTP.Host == "" {
		log.Printf("[WARN] SMTP_HOST is not set, confirmation emails are disabled")
		emailService = mailer.NewNopEmailService()
	} else {
		emailService = mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.Email,
			cfg.SMTP.SenderName,
		)
	}

	// 2. Payment gateway
	var gw gateway.Gateway
	switch cfg.Payment.Provider {
	case "midtrans":
		gw = gateway.NewMidtransGateway(gateway.MidtransConfig{
			ServerKey:    cfg.Payment.MidtransServerKey,
			IsProduction: cfg.Payment.MidtransIsProduction,
			Timeout:      cfg.Payment.Timeout,
		})
	default:
		gw = gateway.NewStripeGateway(gateway.StripeConfig{
			SecretKey:     cfg.Payment.StripeSecretKey,
			WebhookSecret: cfg.Payment.StripeWebhookSecret,
			Timeout:       cfg.Payment.Timeout,
		})
	}
	log.Printf("[INFO] Using Payment Provider: %s", gw.Name())

	// 3. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	c := &Container{Logger: sysLogger}

	// NATS is optional; the in-process bus covers a single instance.
	var stream service.EventStream
	var source service.EventSource
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			stream = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			source = natsSub
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	c.closers = append(c.closers, func() { _ = rdb.Close() })

	webhookEvents := idempotency.NewFallbackStore(
		idempotency.NewRedisStore(rdb, cfg.Cache.WebhookEventTTL),
		idempotency.NewCacheStore(cfg.Cache.WebhookEventTTL),
		func(op string, err error) {
			sysLogger.Warn("Idempotency", "Redis unavailable, using local store", map[string]interface{}{
				"op":    op,
				"error": err.Error(),
			})
		},
	)

	// WebSocket hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.FeedLogFilePath)
	wsHub := websocket.NewHub(rdb, wsLogger)

	// 4. Services
	publisherService := service.NewPublisherService(service.RegistrationEventsTopic, pubSub, stream)
	lifecycleService := service.NewLifecycleService(uowFactory, publisherService, statsCache, sysLogger)
	registrationService := service.NewRegistrationService(uowFactory, lifecycleService, publisherService, statsCache, sysLogger)
	paymentService := service.NewPaymentService(
		gw,
		lifecycleService,
		uowFactory,
		webhookEvents,
		cfg.Payment.DefaultCurrency,
		sysLogger,
	)
	adminService := service.NewAdminService(
		cfg.Admin.Username,
		cfg.Admin.PasswordHash,
		cfg.Admin.JWTSecret,
		cfg.Admin.TokenTTL,
		sysLogger,
	)

	c.ConsumerService = service.NewConsumerService(
		pubSub,
		service.RegistrationEventsTopic,
		uowFactory,
		emailService,
		sysLogger,
	)
	c.NotificationService = service.NewNotificationService(source, pubSub, service.RegistrationEventsTopic, wsHub, wsLogger)
	c.ReconcileService = service.NewReconcileService(uowFactory, gw, lifecycleService, cfg.Payment.ReconcileAfter, sysLogger)

	// 5. Controllers
	adminOnly := serverutils.AdminJwtMiddleware(cfg.Admin.JWTSecret)

	c.AcademyController = controller.NewRegistrationController(entity.KindAcademy, registrationService, adminOnly)
	c.TournamentController = controller.NewRegistrationController(entity.KindTournament, registrationService, adminOnly)
	c.PaymentController = controller.NewPaymentController(paymentService)
	c.AdminController = controller.NewAdminController(adminService, adminOnly)
	c.FeedHandler = handler.NewFeedHandler(wsHub, adminOnly, wsLogger)
	c.WebSocketHub = wsHub

	return c
}

// Close releases the broker connections.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
