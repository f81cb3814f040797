package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is not set
const DefaultPath = "config/config.yml"

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

// placeholderJWTSecret is the secret shipped in config.yml for local runs
const placeholderJWTSecret = "change-me"

type AppConfig struct {
	Port         int    `yaml:"port"`
	Env          string `yaml:"env"`
	GinMode      string `yaml:"gin_mode"`
	LogLevel     string `yaml:"log_level"`
	SiteURL      string `yaml:"site_url"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	Issuer     string `yaml:"issuer"`
	AccessTTL  string `yaml:"access_ttl"`
	RefreshTTL string `yaml:"refresh_ttl"`
}

type OTPConfig struct {
	TTL           string `yaml:"ttl"`
	MaxAttempts   int    `yaml:"max_attempts"`
	ResendWindow  string `yaml:"resend_window"`
	ExposeDevCode bool   `yaml:"expose_dev_code"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type TelegramConfig struct {
	BotToken      string `yaml:"bot_token"`
	APIBaseURL    string `yaml:"api_base_url"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type CasbinConfig struct {
	ModelPath string `yaml:"model_path"`
}

type RealtimeConfig struct {
	Channel      string `yaml:"channel"`
	PingInterval string `yaml:"ping_interval"`
}

// MetricsConfig guards the Prometheus endpoint. An empty token keeps it unmounted.
type MetricsConfig struct {
	Token string `yaml:"token"`
}

type ConfigFile struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	OTP      OTPConfig      `yaml:"otp"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	Telegram TelegramConfig `yaml:"telegram"`
	Casbin   CasbinConfig   `yaml:"casbin"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type Config struct {
	Port         string
	Env          string
	GinMode      string
	LogLevel     string
	SiteURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret  string
	JWTIssuer  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	OTP_TTL           time.Duration
	OTP_MaxAttempts   int
	OTP_ResendWindow  time.Duration
	OTP_ExposeDevCode bool

	TwilioSID   string
	TwilioToken string
	TwilioFrom  string

	TelegramBotToken      string
	TelegramAPIBaseURL    string
	TelegramWebhookSecret string

	CasbinModelPath string

	RealtimeChannel      string
	RealtimePingInterval time.Duration

	MetricsToken string
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads .env (if present), the YAML file at CONFIG_PATH and environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFile(env("CONFIG_PATH", DefaultPath))
}

// LoadFile builds the configuration from a YAML file plus environment overrides.
func LoadFile(path string) (*Config, error) {
	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	return FromFile(configFile)
}

// FromFile applies defaults and environment overrides to a parsed config file.
func FromFile(configFile *ConfigFile) (*Config, error) {
	d := durationParser{}
	accTTL := d.parse("jwt.access_ttl", configFile.JWT.AccessTTL, 15*time.Minute)
	refTTL := d.parse("jwt.refresh_ttl", configFile.JWT.RefreshTTL, 7*24*time.Hour)
	otpTTL := d.parse("otp.ttl", configFile.OTP.TTL, 10*time.Minute)
	resWnd := d.parse("otp.resend_window", configFile.OTP.ResendWindow, 60*time.Second)
	readTO := d.parse("app.read_timeout", configFile.App.ReadTimeout, 15*time.Second)
	writeTO := d.parse("app.write_timeout", configFile.App.WriteTimeout, 15*time.Second)
	ping := d.parse("realtime.ping_interval", configFile.Realtime.PingInterval, 30*time.Second)
	if d.err != nil {
		return nil, d.err
	}

	port := configFile.App.Port
	if p := os.Getenv("PORT"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", p, err)
		}
		port = parsed
	}
	if port == 0 {
		port = 8080
	}

	maxAttempts := configFile.OTP.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 5
	}

	cfg := &Config{
		Port:         strconv.Itoa(port),
		Env:          env("APP_ENV", orDefault(configFile.App.Env, EnvProduction)),
		GinMode:      env("GIN_MODE", orDefault(configFile.App.GinMode, "release")),
		LogLevel:     env("LOG_LEVEL", orDefault(configFile.App.LogLevel, "info")),
		SiteURL:      env("SITE_URL", configFile.App.SiteURL),
		ReadTimeout:  readTO,
		WriteTimeout: writeTO,

		DSN:           env("DATABASE_DSN", configFile.Database.DSN),
		RedisAddr:     env("REDIS_ADDR", orDefault(configFile.Redis.Addr, "localhost:6379")),
		RedisPassword: env("REDIS_PASSWORD", configFile.Redis.Password),
		RedisDB:       configFile.Redis.DB,

		JWTSecret:  env("JWT_SECRET", configFile.JWT.Secret),
		JWTIssuer:  orDefault(configFile.JWT.Issuer, "ethio-farm-connect"),
		AccessTTL:  accTTL,
		RefreshTTL: refTTL,

		OTP_TTL:           otpTTL,
		OTP_MaxAttempts:   maxAttempts,
		OTP_ResendWindow:  resWnd,
		OTP_ExposeDevCode: env("OTP_EXPOSE_DEV_CODE", strconv.FormatBool(configFile.OTP.ExposeDevCode)) == "true",

		TwilioSID:   env("TWILIO_ACCOUNT_SID", configFile.Twilio.AccountSID),
		TwilioToken: env("TWILIO_AUTH_TOKEN", configFile.Twilio.AuthToken),
		TwilioFrom:  env("TWILIO_FROM_NUMBER", configFile.Twilio.FromNumber),

		TelegramBotToken:      env("TELEGRAM_BOT_TOKEN", configFile.Telegram.BotToken),
		TelegramAPIBaseURL:    orDefault(configFile.Telegram.APIBaseURL, "https://api.telegram.org"),
		TelegramWebhookSecret: env("TELEGRAM_WEBHOOK_SECRET", configFile.Telegram.WebhookSecret),

		CasbinModelPath: configFile.Casbin.ModelPath,

		RealtimeChannel:      orDefault(configFile.Realtime.Channel, "realtime:changes"),
		RealtimePingInterval: ping,

		MetricsToken: env("METRICS_TOKEN", configFile.Metrics.Token),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that must never reach a running service.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("jwt ttls must be positive")
	}
	if c.OTP_TTL <= 0 {
		return errors.New("otp ttl must be positive")
	}
	if c.OTP_ResendWindow < 0 {
		return errors.New("otp resend window must not be negative")
	}
	if c.OTP_ExposeDevCode && !c.IsLocal() {
		return fmt.Errorf("otp.expose_dev_code is only allowed in %s or %s, not %q", EnvDevelopment, EnvTest, c.Env)
	}
	if c.JWTSecret == placeholderJWTSecret && !c.IsLocal() {
		return fmt.Errorf("jwt secret %q is a placeholder and cannot be used in %q", placeholderJWTSecret, c.Env)
	}
	if c.TelegramBotToken != "" && c.TelegramWebhookSecret == "" {
		return errors.New("telegram webhook secret is required when a bot token is set")
	}
	return nil
}

// IsProduction reports whether the service runs against real users
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// IsLocal reports whether the environment is a developer machine or a test run.
// An unset environment is treated as production.
func (c *Config) IsLocal() bool {
	return c.Env == EnvDevelopment || c.Env == EnvTest
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}

// durationParser keeps the first parse error so Load can report it once
type durationParser struct{ err error }

func (d *durationParser) parse(field, raw string, def time.Duration) time.Duration {
	if raw == "" || d.err != nil {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		d.err = fmt.Errorf("invalid %s: %w", field, err)
		return def
	}
	return v
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
