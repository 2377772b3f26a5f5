package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SLA evaluation modes.
const (
	SLAModeScheduled = "scheduled"
	SLAModeRequest   = "request"
)

// Broker kinds.
const (
	BrokerNone = "none"
	BrokerAMQP = "amqp"
	BrokerMQTT = "mqtt"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Mail     MailConfig
	SLA      SLAConfig
	Broker   BrokerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	UnreadCacheTTLS int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// MailConfig describes the outbound SMTP transport and the email outbox.
type MailConfig struct {
	Enabled             bool
	Host                string
	Port                int
	Username            string
	Password            string
	Secure              bool
	From                string
	PollIntervalSeconds int
	BatchSize           int
	MaxAttempts         int
}

// SLAConfig controls when breach evaluation runs.
type SLAConfig struct {
	EvaluationMode  string
	IntervalSeconds int
	LockTTLSeconds  int
}

// BrokerConfig selects where ticket events are published.
type BrokerConfig struct {
	Kind        string
	URL         string
	Exchange    string
	TopicPrefix string
	ClientID    string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:        os.Getenv("REDIS_PASSWORD"),
			DB:              redisDB,
			UnreadCacheTTLS: getEnvAsInt("REDIS_UNREAD_CACHE_TTL_SECONDS", 300),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Mail: MailConfig{
			Enabled:             getEnvAsBool("MAIL_ENABLED", false),
			Host:                os.Getenv("MAIL_SMTP_HOST"),
			Port:                getEnvAsInt("MAIL_SMTP_PORT", 587),
			Username:            os.Getenv("MAIL_SMTP_USER"),
			Password:            os.Getenv("MAIL_SMTP_PASSWORD"),
			Secure:              getEnvAsBool("MAIL_SMTP_SECURE", false),
			From:                getEnv("MAIL_FROM", "noreply@example.com"),
			PollIntervalSeconds: getEnvAsInt("MAIL_OUTBOX_POLL_INTERVAL_SECONDS", 10),
			BatchSize:           getEnvAsInt("MAIL_OUTBOX_BATCH_SIZE", 20),
			MaxAttempts:         getEnvAsInt("MAIL_MAX_ATTEMPTS", 8),
		},
		SLA: SLAConfig{
			EvaluationMode:  strings.ToLower(getEnv("SLA_EVALUATION_MODE", SLAModeScheduled)),
			IntervalSeconds: getEnvAsInt("SLA_EVALUATION_INTERVAL_SECONDS", 60),
			LockTTLSeconds:  getEnvAsInt("SLA_EVALUATION_LOCK_TTL_SECONDS", 55),
		},
		Broker: BrokerConfig{
			Kind:        strings.ToLower(getEnv("BROKER_KIND", BrokerNone)),
			URL:         os.Getenv("BROKER_URL"),
			Exchange:    getEnv("BROKER_EXCHANGE", "helpdesk.events"),
			TopicPrefix: getEnv("BROKER_TOPIC_PREFIX", "helpdesk"),
			ClientID:    getEnv("BROKER_CLIENT_ID", "helpdesk-api"),
		},
	}

	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.App.Env == "production" && c.Postgres.DSN == "" {
		errs = append(errs, errors.New("POSTGRES_DSN is required in production"))
	}
	if c.App.Env == "production" && c.Auth.JWTSecret == "dev-secret" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be set in production"))
	}
	switch c.SLA.EvaluationMode {
	case SLAModeScheduled, SLAModeRequest:
	default:
		errs = append(errs, fmt.Errorf("unknown SLA_EVALUATION_MODE %q", c.SLA.EvaluationMode))
	}
	if c.SLA.EvaluationMode == SLAModeScheduled && c.SLA.IntervalSeconds <= 0 {
		errs = append(errs, errors.New("SLA_EVALUATION_INTERVAL_SECONDS must be positive"))
	}
	if c.Mail.Enabled && strings.TrimSpace(c.Mail.Host) == "" {
		errs = append(errs, errors.New("MAIL_SMTP_HOST is required when MAIL_ENABLED"))
	}
	switch c.Broker.Kind {
	case BrokerNone, "":
	case BrokerAMQP, BrokerMQTT:
		if c.Broker.URL == "" {
			errs = append(errs, fmt.Errorf("BROKER_URL is required for broker %q", c.Broker.Kind))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BROKER_KIND %q", c.Broker.Kind))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// UnreadCacheTTL returns how long cached unread counts live.
func (r RedisConfig) UnreadCacheTTL() time.Duration {
	if r.UnreadCacheTTLS <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(r.UnreadCacheTTLS) * time.Second
}

// Interval returns the scheduled evaluation cadence.
func (s SLAConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// LockTTL returns the lifetime of the cross-replica evaluation lock.
func (s SLAConfig) LockTTL() time.Duration {
	if s.LockTTLSeconds <= 0 {
		return s.Interval()
	}
	return time.Duration(s.LockTTLSeconds) * time.Second
}

// PollInterval returns the outbox polling cadence.
func (m MailConfig) PollInterval() time.Duration {
	if m.PollIntervalSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(m.PollIntervalSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
