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

// Store drivers.
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
)

// Push providers.
const (
	PushProviderLog = "log"
	PushProviderFCM = "fcm"
)

// Prune modes.
const (
	PruneModeAll          = "all"
	PruneModeUnregistered = "unregistered"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Store    StoreConfig
	Postgres PostgresConfig
	SQLite   SQLiteConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Push     PushConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Notify   NotifyConfig
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

// StoreConfig selects the registration store backend.
type StoreConfig struct {
	Driver string
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

// SQLiteConfig holds the SQLite database location.
type SQLiteConfig struct {
	Path string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NATSConfig configures the inbound event stream.
type NATSConfig struct {
	URL        string
	Subject    string
	QueueGroup string
}

// Enabled reports whether stream ingestion is configured.
func (n NATSConfig) Enabled() bool {
	return strings.TrimSpace(n.URL) != ""
}

// PushConfig selects and configures the push gateway.
type PushConfig struct {
	Provider        string
	CredentialsFile string
	ProjectID       string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines admin API authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// Enabled reports whether the admin API requires bearer tokens.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// NotifyConfig tunes the notification engine.
type NotifyConfig struct {
	PruneMode string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-notifier"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverSQLite)),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "tokens.db"),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "notify"),
		},
		NATS: NATSConfig{
			URL:        os.Getenv("NATS_URL"),
			Subject:    getEnv("NATS_SUBJECT", "ttk.events"),
			QueueGroup: getEnv("NATS_QUEUE_GROUP", "ticket-notifier"),
		},
		Push: PushConfig{
			Provider:        strings.ToLower(getEnv("PUSH_PROVIDER", PushProviderLog)),
			CredentialsFile: os.Getenv("FCM_CREDENTIALS_FILE"),
			ProjectID:       os.Getenv("FCM_PROJECT_ID"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             os.Getenv("AUTH_JWT_SECRET"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Notify: NotifyConfig{
			PruneMode: strings.ToLower(getEnv("NOTIFY_PRUNE_MODE", PruneModeAll)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects option combinations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case StoreDriverSQLite, StoreDriverPostgres, StoreDriverRedis:
	default:
		errs = append(errs, fmt.Errorf("invalid STORE_DRIVER %q", c.Store.Driver))
	}
	if c.Store.Driver == StoreDriverPostgres && c.Postgres.DSN == "" {
		errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres store"))
	}
	switch c.Push.Provider {
	case PushProviderLog:
	case PushProviderFCM:
		if c.Push.CredentialsFile == "" {
			errs = append(errs, errors.New("FCM_CREDENTIALS_FILE is required for the fcm provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid PUSH_PROVIDER %q", c.Push.Provider))
	}
	switch c.Notify.PruneMode {
	case PruneModeAll, PruneModeUnregistered:
	default:
		errs = append(errs, fmt.Errorf("invalid NOTIFY_PRUNE_MODE %q", c.Notify.PruneMode))
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
