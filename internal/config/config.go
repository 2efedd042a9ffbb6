package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"climadex/pkg/database"
	"climadex/pkg/logging"
)

// Config holds environment-driven settings for all commands.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
	Indicators IndicatorsConfig
	API        APIConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver          string // sqlite or postgres
	Path            string // sqlite file
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type LoggingConfig struct {
	Level string
}

type IndicatorsConfig struct {
	// Path of the gridded CSV dataset.
	Path       string
	Resolution float64
}

type APIConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	CORSOrigins     []string
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit      float64
	RateLimitBurst int
}

// LoadConfig reads configuration from environment variables, loading a .env
// file first when present. Malformed values are reported, never ignored.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          database.DriverSQLite,
			Path:            "db.sqlite3",
			Host:            "localhost",
			Port:            5432,
			User:            "climadex",
			Database:        "climadex",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Indicators: IndicatorsConfig{
			Path:       "data/indicators.csv",
			Resolution: 0.5,
		},
		API: APIConfig{
			DefaultPageSize: 15,
			MaxPageSize:     100,
			CORSOrigins:     []string{"*"},
			RateLimitBurst:  20,
		},
	}

	env := &envReader{}

	cfg.Server.Host = env.String("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = env.Int("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = env.Duration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = env.Duration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = env.Duration("SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = env.Duration("SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Database.Driver = strings.ToLower(env.String("DB_DRIVER", cfg.Database.Driver))
	cfg.Database.Path = env.String("DB_PATH", cfg.Database.Path)
	cfg.Database.Host = env.String("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = env.Int("DB_PORT", cfg.Database.Port)
	cfg.Database.User = env.String("DB_USER", cfg.Database.User)
	cfg.Database.Password = env.String("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = env.String("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = env.String("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.MaxOpenConns = env.Int("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = env.Int("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.ConnMaxLifetime = env.Duration("DB_CONN_MAX_LIFETIME", cfg.Database.ConnMaxLifetime)
	cfg.Database.ConnMaxIdleTime = env.Duration("DB_CONN_MAX_IDLE_TIME", cfg.Database.ConnMaxIdleTime)

	cfg.Logging.Level = strings.ToLower(env.String("LOG_LEVEL", cfg.Logging.Level))

	cfg.Indicators.Path = env.String("INDICATORS_PATH", cfg.Indicators.Path)
	cfg.Indicators.Resolution = env.Float("INDICATORS_RESOLUTION", cfg.Indicators.Resolution)

	cfg.API.DefaultPageSize = env.Int("API_DEFAULT_PAGE_SIZE", cfg.API.DefaultPageSize)
	cfg.API.MaxPageSize = env.Int("API_MAX_PAGE_SIZE", cfg.API.MaxPageSize)
	cfg.API.CORSOrigins = env.List("API_CORS_ORIGINS", cfg.API.CORSOrigins)
	cfg.API.RateLimit = env.Float("API_RATE_LIMIT", cfg.API.RateLimit)
	cfg.API.RateLimitBurst = env.Int("API_RATE_LIMIT_BURST", cfg.API.RateLimitBurst)

	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port))
	}

	switch c.Database.Driver {
	case database.DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite driver"))
		}
	case database.DriverPostgres:
		if c.Database.Host == "" || c.Database.Database == "" {
			errs = append(errs, errors.New("DB_HOST and DB_NAME are required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.Database.Driver))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if c.Indicators.Resolution <= 0 {
		errs = append(errs, fmt.Errorf("INDICATORS_RESOLUTION must be positive, got %v", c.Indicators.Resolution))
	}

	if c.API.DefaultPageSize < 1 || c.API.MaxPageSize < c.API.DefaultPageSize {
		errs = append(errs, fmt.Errorf("page sizes must satisfy 1 <= API_DEFAULT_PAGE_SIZE (%d) <= API_MAX_PAGE_SIZE (%d)",
			c.API.DefaultPageSize, c.API.MaxPageSize))
	}

	if c.API.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("API_RATE_LIMIT must not be negative, got %v", c.API.RateLimit))
	}

	return errors.Join(errs...)
}

// DatabaseConfig converts the settings into the database package's form.
func (c *Config) DatabaseConfig() *database.Config {
	return &database.Config{
		Driver:          c.Database.Driver,
		Path:            c.Database.Path,
		Host:            c.Database.Host,
		Port:            c.Database.Port,
		User:            c.Database.User,
		Password:        c.Database.Password,
		Database:        c.Database.Database,
		SSLMode:         c.Database.SSLMode,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		ConnMaxIdleTime: c.Database.ConnMaxIdleTime,
	}
}

// LogLevel returns the parsed logging level, defaulting to info.
func (c *Config) LogLevel() logging.LogLevel {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.InfoLevel
	}
	return level
}

// ListenAddr returns the host:port string for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// envReader reads typed environment variables, collecting parse errors.
type envReader struct {
	errs []error
}

func (e *envReader) String(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *envReader) Int(key string, def int) int {
	raw := e.String(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %q", key, raw))
		return def
	}
	return v
}

func (e *envReader) Float(key string, def float64) float64 {
	raw := e.String(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %q", key, raw))
		return def
	}
	return v
}

func (e *envReader) Duration(key string, def time.Duration) time.Duration {
	raw := e.String(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %q", key, raw))
		return def
	}
	return v
}

func (e *envReader) List(key string, def []string) []string {
	raw := e.String(key, "")
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
