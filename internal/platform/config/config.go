package config

import (
	"crypto/rand"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "profreg/pkg/platform/strings"
)

// Relay settings are fixed; only the credentials come from the environment.
const (
	SMTPHost = "smtp.mail.ru"
	SMTPPort = 587
)

// Database drivers understood by the persistence gateway.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Server captures process level configuration. It is built once at start and
// passed explicitly to every component that needs a piece of it.
type Server struct {
	Addr           string
	ProfessionSeed []string
	RequestTimeout time.Duration
	Database       DatabaseConfig
	SMTP           SMTPConfig
	Session        SessionConfig
	Log            LogConfig
}

// DatabaseConfig holds connection settings for the profession table.
type DatabaseConfig struct {
	Driver          string
	User            string
	Password        string
	Host            string
	Port            string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// SMTPConfig holds the mail relay credentials. Empty values are allowed at
// start; sending then fails with a configuration error.
type SMTPConfig struct {
	Email    string
	Password string
	Host     string
	Port     int
	Timeout  time.Duration
}

// SessionConfig controls the session cookie and pending-state lifetime.
type SessionConfig struct {
	Secret       []byte
	TTL          time.Duration
	SecureCookie bool
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// FromEnv builds a Server config from environment variables so main stays lean.
// Database and SMTP variable names match the ones the form has always used.
func FromEnv() (Server, error) {
	sessionTTL, err := durationEnv("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return Server{}, err
	}
	requestTimeout, err := durationEnv("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return Server{}, err
	}
	smtpTimeout, err := durationEnv("SMTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return Server{}, err
	}
	connMaxLifetime, err := durationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return Server{}, err
	}
	maxOpen, err := intEnv("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return Server{}, err
	}
	maxIdle, err := intEnv("DB_MAX_IDLE_CONNS", 0)
	if err != nil {
		return Server{}, err
	}

	driver := strings.ToLower(envOr("db_driver", DriverMySQL))
	switch driver {
	case DriverMySQL, DriverPostgres, DriverMemory:
	default:
		return Server{}, fmt.Errorf("unsupported db_driver %q", driver)
	}

	secret := []byte(os.Getenv("SESSION_SECRET"))
	if len(secret) == 0 {
		secret, err = generateSecret()
		if err != nil {
			return Server{}, err
		}
	}

	return Server{
		Addr:           envOr("ADDR", ":5000"),
		ProfessionSeed: pstrings.SplitAndTrim(os.Getenv("PROFESSION_SEED"), ","),
		RequestTimeout: requestTimeout,
		Database: DatabaseConfig{
			Driver:          driver,
			User:            os.Getenv("db_user"),
			Password:        os.Getenv("db_password"),
			Host:            os.Getenv("host"),
			Port:            os.Getenv("db_port"),
			Name:            os.Getenv("db_name"),
			MaxOpenConns:    maxOpen,
			MaxIdleConns:    maxIdle,
			ConnMaxLifetime: connMaxLifetime,
			AutoMigrate:     os.Getenv("AUTO_MIGRATE") == "true",
		},
		SMTP: SMTPConfig{
			Email:    os.Getenv("SMTP_EMAIL"),
			Password: os.Getenv("SMTP__PASSWORD"),
			Host:     SMTPHost,
			Port:     SMTPPort,
			Timeout:  smtpTimeout,
		},
		Session: SessionConfig{
			Secret:       secret,
			TTL:          sessionTTL,
			SecureCookie: os.Getenv("SECURE_COOKIES") == "true",
		},
		Log: LogConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "text"),
		},
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return n, nil
}

// generateSecret returns 32 random bytes for signing session cookies when no
// SESSION_SECRET is configured. Sessions then do not survive a restart.
func generateSecret() ([]byte, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("could not generate session secret: %w", err)
	}
	return buf, nil
}
