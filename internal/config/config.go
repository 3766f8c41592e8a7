package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Payment  PaymentConfig
	Admin    AdminConfig
	Cache    CacheConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	FeedLogFilePath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Driver     string // "postgres" or "memory"
	Connection string
	MaxIdle    int
	MaxOpen    int
	LogQueries bool
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type PaymentConfig struct {
	Provider        string // "stripe" or "midtrans"
	DefaultCurrency string
	Timeout         time.Duration

	StripeSecretKey     string
	StripeWebhookSecret string

	MidtransServerKey    string
	MidtransIsProduction bool

	ReconcileInterval time.Duration
	ReconcileAfter    time.Duration
}

type AdminConfig struct {
	Username     string
	PasswordHash string // bcrypt
	JWTSecret    string
	TokenTTL     time.Duration
}

type CacheConfig struct {
	WebhookEventTTL time.Duration
	StatsTTL        time.Duration
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "5000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:5000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			FeedLogFilePath:    getEnv("FEED_LOG_FILE_PATH", "admin_feed.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			MaxIdle:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpen:    getEnvAsInt("DB_MAX_OPEN_CONNS", 50),
			LogQueries: getEnvAsBool("DB_LOG_QUERIES", false),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Atomics Football"),
		},
		Payment: PaymentConfig{
			Provider:             getEnv("PAYMENT_PROVIDER", "stripe"),
			DefaultCurrency:      getEnv("PAYMENT_DEFAULT_CURRENCY", "aed"),
			Timeout:              getEnvAsDuration("PAYMENT_TIMEOUT", 10*time.Second),
			StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			StripeWebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
			MidtransServerKey:    getEnv("MIDTRANS_SERVER_KEY", ""),
			MidtransIsProduction: getEnvAsBool("MIDTRANS_IS_PRODUCTION", false),
			ReconcileInterval:    getEnvAsDuration("RECONCILE_INTERVAL", 10*time.Minute),
			ReconcileAfter:       getEnvAsDuration("RECONCILE_AFTER", 30*time.Minute),
		},
		Admin: AdminConfig{
			Username:     getEnv("ADMIN_USERNAME", "admin"),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			JWTSecret:    getEnv("JWT_SECRET", ""),
			TokenTTL:     getEnvAsDuration("ADMIN_TOKEN_TTL", 12*time.Hour),
		},
		Cache: CacheConfig{
			WebhookEventTTL: getEnvAsDuration("WEBHOOK_EVENT_TTL", 72*time.Hour),
			StatsTTL:        getEnvAsDuration("STATS_CACHE_TTL", 30*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
