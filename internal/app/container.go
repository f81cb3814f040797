package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/config"
	httpx "github.com/vouge2017/ethio-farm-connect-sub000/internal/http"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/http/handlers"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/http/middleware"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/infrastructure/auth"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/infrastructure/database"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/infrastructure/notifications"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/infrastructure/realtime"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/infrastructure/repositories"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/logger"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/metrics"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/services"
)

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config
	Log    *zap.Logger

	// Infrastructure
	DB          *gorm.DB
	RedisClient *redis.Client
	Metrics     *metrics.Metrics
	Casbin      *auth.CasbinService
	Broker      *realtime.Broker
	Hub         *realtime.Hub
	Telegram    *notifications.TelegramService

	// Repositories
	OTPRepo       domain.OTPRepository
	AccountRepo   domain.AccountRepository
	SessionRepo   domain.SessionRepository
	MessagingRepo domain.MessagingRepository
	ChatRepo      domain.TelegramChatRepository

	// Services
	TokenSvc     domain.TokenService
	Dispatcher   domain.Dispatcher
	Audit        domain.AuditLogger
	AuthSvc      *services.AuthServiceImpl
	OTPSvc       *services.OTPServiceImpl
	PolicySvc    *services.PolicyServiceImpl
	MessagingSvc *services.MessagingServiceImpl
}

// Option adjusts the container before services are built
type Option func(*Container)

// WithDispatcher replaces the SMS/Telegram dispatcher
func WithDispatcher(d domain.Dispatcher) Option {
	return func(c *Container) { c.Dispatcher = d }
}

// NewContainer connects to Postgres and Redis and initializes all dependencies
func NewContainer(cfg *config.Config, log *zap.Logger, opts ...Option) (*Container, error) {
	db, err := database.Open(cfg.DSN, cfg.LogLevel == "debug")
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	rdb, err := database.OpenRedis(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	c, err := NewContainerWithStores(cfg, log, db, rdb, opts...)
	if err != nil {
		_ = rdb.Close()
		_ = database.Close(db)
		return nil, err
	}
	return c, nil
}

// NewContainerWithStores initializes all dependencies on already open stores
func NewContainerWithStores(cfg *config.Config, log *zap.Logger, db *gorm.DB, rdb *redis.Client, opts ...Option) (*Container, error) {
	container := &Container{
		Config:      cfg,
		Log:         log,
		DB:          db,
		RedisClient: rdb,
		Metrics:     metrics.New(),
	}
	for _, opt := range opts {
		opt(container)
	}

	if err := database.AutoMigrate(db, log); err != nil {
		return nil, err
	}
	if err := middleware.RegisterValidators(); err != nil {
		return nil, err
	}

	container.initRepositories()
	if err := container.initAuthorization(); err != nil {
		return nil, err
	}
	container.initRealtime()
	container.initServices()

	return container, nil
}

func (c *Container) initRepositories() {
	c.OTPRepo = repositories.NewOTPRepository(c.DB)
	c.AccountRepo = repositories.NewAccountRepository(c.DB)
	c.SessionRepo = repositories.NewSessionRepository(c.RedisClient, c.Config.RefreshTTL)
	c.MessagingRepo = repositories.NewMessagingRepository(c.DB)
	c.ChatRepo = repositories.NewTelegramChatRepository(c.DB)
}

func (c *Container) initAuthorization() error {
	cas, err := auth.NewCasbinService(c.DB, c.Config.CasbinModelPath)
	if err != nil {
		return fmt.Errorf("failed to initialize casbin: %w", err)
	}
	seeded, err := cas.SeedDefaults()
	if err != nil {
		return err
	}
	if seeded {
		c.Log.Info("casbin: seeded default policies")
	}
	c.Casbin = cas
	return nil
}

func (c *Container) initRealtime() {
	log := logger.WithComponent(c.Log, "realtime")
	c.Broker = realtime.NewBroker(c.RedisClient, c.Config.RealtimeChannel, log)
	c.Hub = realtime.NewHub(c.Config.RealtimePingInterval, c.Metrics, log)
}

func (c *Container) initServices() {
	c.TokenSvc = auth.NewJWTService(
		c.Config.JWTSecret,
		c.Config.JWTIssuer,
		c.Config.AccessTTL,
		c.Config.RefreshTTL,
	)
	c.Audit = logger.NewAuditLogger(c.Log)

	c.Telegram = notifications.NewTelegramService(
		c.Config.TelegramBotToken,
		c.Config.TelegramAPIBaseURL,
		c.ChatRepo,
		c.Config.OTP_TTL,
		logger.WithComponent(c.Log, "telegram"),
	)
	if c.Dispatcher == nil {
		c.Dispatcher = notifications.NewDispatcher(map[domain.Channel]domain.OTPSender{
			domain.ChannelSMS: notifications.NewTwilioService(
				c.Config.TwilioSID,
				c.Config.TwilioToken,
				c.Config.TwilioFrom,
				c.Config.OTP_TTL,
				logger.WithComponent(c.Log, "sms"),
			),
			domain.ChannelTelegram: c.Telegram,
		})
	}

	c.AuthSvc = services.NewAuthService(
		c.AccountRepo,
		c.SessionRepo,
		c.TokenSvc,
		c.Audit,
		c.Broker,
		logger.WithComponent(c.Log, "auth"),
		c.Config.RefreshTTL,
	)
	c.OTPSvc = services.NewOTPService(
		c.OTPRepo,
		c.AccountRepo,
		c.AuthSvc,
		c.Dispatcher,
		c.Audit,
		c.Metrics,
		logger.WithComponent(c.Log, "otp"),
		services.OTPConfig{
			TTL:           c.Config.OTP_TTL,
			MaxAttempts:   c.Config.OTP_MaxAttempts,
			ResendWindow:  c.Config.OTP_ResendWindow,
			ExposeDevCode: c.Config.OTP_ExposeDevCode,
			SiteURL:       c.Config.SiteURL,
		},
	)
	c.PolicySvc = services.NewPolicyService(c.Casbin.E, c.AccountRepo, c.Audit)
	c.MessagingSvc = services.NewMessagingService(
		c.MessagingRepo,
		c.AccountRepo,
		c.Broker,
		c.Metrics,
		logger.WithComponent(c.Log, "messaging"),
	)
}

// Router builds the HTTP handler over the container's services
func (c *Container) Router() http.Handler {
	log := logger.WithComponent(c.Log, "http")

	h := httpx.Handlers{
		Functions: handlers.NewFunctionHandlers(c.OTPSvc, log),
		Auth:      handlers.NewAuthHandlers(c.AuthSvc, log),
		Messaging: handlers.NewMessagingHandlers(c.MessagingSvc, log),
		Policy:    handlers.NewPolicyHandlers(c.PolicySvc, log),
		Realtime:  handlers.NewRealtimeHandlers(c.Hub, log),
		Metrics:   c.Metrics.Handler(),

		MetricsToken: c.Config.MetricsToken,
	}
	if c.Telegram.Configured() {
		h.Telegram = handlers.NewTelegramHandlers(c.Telegram, c.Config.TelegramWebhookSecret, log)
	}

	jwtMW := middleware.NewAuthMW(c.TokenSvc, c.SessionRepo)
	casbinMW := middleware.NewCasbinMW(c.Casbin.E, log)
	return httpx.BuildRouter(h, jwtMW, casbinMW, log)
}

// Close closes all connections
func (c *Container) Close() error {
	if c.Hub != nil {
		c.Hub.Close()
	}
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}
	if c.DB != nil {
		return database.Close(c.DB)
	}
	return nil
}
