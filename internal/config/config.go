package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Membership sources
const (
	MembershipSourceLocal    = "local"
	MembershipSourcePostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	// Database Configuration
	Database DatabaseConfig

	// Redis Configuration
	Redis RedisConfig

	// Logging Configuration
	Logging LoggingConfig

	// HTTP Configuration
	HTTP HTTPConfig

	// Auth Configuration
	Auth AuthConfig

	// Guard Configuration
	Guard GuardConfig

	// Audit Configuration
	Audit AuditConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL              string // SQLite path for the service-owned store
	MembershipSource string // local, postgres
	PostgresURL      string // hosted database holding memberships/superadmins
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port         string
	AllowOrigins []string
}

// AuthConfig holds token and session configuration
type AuthConfig struct {
	JWTSecret           string
	TokenTTL            time.Duration
	SessionTTL          time.Duration
	SessionCookieSecure bool
}

// GuardConfig holds access guard configuration
type GuardConfig struct {
	SuperadminFallback bool
}

// AuditConfig holds audit log configuration
type AuditConfig struct {
	Retention     time.Duration
	PruneSchedule string // cron expression
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	tokenTTL, err := durationEnv("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := durationEnv("SESSION_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	retention, err := durationEnv("AUDIT_RETENTION", 90*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cookieSecure, err := boolEnv("SESSION_COOKIE_SECURE", true)
	if err != nil {
		return nil, err
	}
	superadminFallback, err := boolEnv("GUARD_SUPERADMIN_FALLBACK", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:              stringEnv("DATABASE_URL", "orbo.sqlite"),
			MembershipSource: strings.ToLower(stringEnv("MEMBERSHIP_SOURCE", MembershipSourceLocal)),
			PostgresURL:      os.Getenv("POSTGRES_URL"),
		},
		Redis: RedisConfig{
			Address: stringEnv("REDIS_ADDRESS", "localhost:6379"),
		},
		Logging: LoggingConfig{
			Level:  stringEnv("LOG_LEVEL", "info"),
			Format: stringEnv("LOG_FORMAT", "json"),
		},
		HTTP: HTTPConfig{
			Port:         stringEnv("HTTP_PORT", "8080"),
			AllowOrigins: splitList(stringEnv("CORS_ORIGINS", "http://localhost:3000")),
		},
		Auth: AuthConfig{
			JWTSecret:           os.Getenv("JWT_SECRET"),
			TokenTTL:            tokenTTL,
			SessionTTL:          sessionTTL,
			SessionCookieSecure: cookieSecure,
		},
		Guard: GuardConfig{
			SuperadminFallback: superadminFallback,
		},
		Audit: AuditConfig{
			Retention:     retention,
			PruneSchedule: stringEnv("AUDIT_PRUNE_SCHEDULE", "0 3 * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	switch c.Database.MembershipSource {
	case MembershipSourceLocal:
	case MembershipSourcePostgres:
		if c.Database.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required when MEMBERSHIP_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("invalid MEMBERSHIP_SOURCE %q, must be one of: local, postgres", c.Database.MembershipSource)
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL and SESSION_TTL must be positive")
	}
	if c.Audit.Retention <= 0 {
		return fmt.Errorf("AUDIT_RETENTION must be positive")
	}

	return nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
