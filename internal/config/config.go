package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	// ProxyHeader names the header carrying the client address when running behind a
	// trusted proxy. Empty means the remote peer address is used.
	ProxyHeader string
	// TrustedProxies lists the peer IPs or CIDR ranges whose ProxyHeader is believed.
	// Requests from any other peer are keyed by their own address.
	TrustedProxies []string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters. The token signing key is not
// configurable: it is generated once per process.
type AuthConfig struct {
	TokenTTLSeconds int
	BcryptCost      int
}

// RateLimitConfig tunes the per-address fixed window limiter.
type RateLimitConfig struct {
	WindowMillis         int
	MaxRequests          int
	Methods              []string
	SweepIntervalSeconds int
	IdleWindows          int
	StatsEnabled         bool
	StatsBuffer          int
}

// CORSConfig mirrors the cross-origin settings exposed to browsers.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
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
			Name:                  getEnv("APP_NAME", "northwind-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			ProxyHeader:           os.Getenv("APP_PROXY_HEADER"),
			TrustedProxies:        getEnvAsList("APP_TRUSTED_PROXIES", nil),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			TokenTTLSeconds: getEnvAsInt("AUTH_TOKEN_TTL_SECONDS", 3600),
			BcryptCost:      getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		RateLimit: RateLimitConfig{
			WindowMillis:         getEnvAsInt("RATE_LIMIT_WINDOW_MS", 10_000),
			MaxRequests:          getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 100),
			Methods:              getEnvAsList("RATE_LIMIT_METHODS", []string{"GET"}),
			SweepIntervalSeconds: getEnvAsInt("RATE_LIMIT_SWEEP_INTERVAL_SECONDS", 60),
			IdleWindows:          getEnvAsInt("RATE_LIMIT_IDLE_WINDOWS", 6),
			StatsEnabled:         getEnvAsBool("RATE_LIMIT_STATS_ENABLED", true),
			StatsBuffer:          getEnvAsInt("RATE_LIMIT_STATS_BUFFER", 1024),
		},
		CORS: CORSConfig{
			AllowOrigins:     getEnvAsList("CORS_ALLOW_ORIGINS", []string{"*"}),
			AllowMethods:     getEnvAsList("CORS_ALLOW_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowHeaders:     getEnvAsList("CORS_ALLOW_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
		},
	}

	if cfg.RateLimit.WindowMillis <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW_MS: %d", cfg.RateLimit.WindowMillis)
	}
	if cfg.RateLimit.MaxRequests <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_MAX_REQUESTS: %d", cfg.RateLimit.MaxRequests)
	}

	return cfg, nil
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

// TokenTTL returns the lifetime of issued access tokens.
func (a AuthConfig) TokenTTL() time.Duration {
	if a.TokenTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(a.TokenTTLSeconds) * time.Second
}

// Window returns the limiter window length.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowMillis) * time.Millisecond
}

// SweepInterval returns how often idle counters are evicted. Zero disables the sweep.
func (r RateLimitConfig) SweepInterval() time.Duration {
	if r.SweepIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(r.SweepIntervalSeconds) * time.Second
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

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	items := make([]string, 0)
	for _, part := range strings.Split(val, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
