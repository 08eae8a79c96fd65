package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pricehist/internal/crawler"
	"pricehist/internal/db"
	"pricehist/internal/dimension"
	"pricehist/internal/lock"
)

var (
	ErrUnknownDriver    = errors.New("database_driver must be one of: sqlite, postgres, pgx")
	ErrMissingDatabase  = errors.New("database_url is required")
	ErrUnknownMatchMode = errors.New("product_match must be 'pattern' or 'exact'")
	ErrInvalidTimeout   = errors.New("fetch_timeout must be positive")
	ErrMissingEmail     = errors.New("smtp.email is required when smtp.host is set")
)

type Config struct {
	DatabaseDriver string        `yaml:"database_driver"`
	DatabaseURL    string        `yaml:"database_url"`
	RedisURL       string        `yaml:"redis_url"`
	LockTTL        time.Duration `yaml:"lock_ttl"`
	PushgatewayURL string        `yaml:"pushgateway_url"`
	LogLevel       string        `yaml:"log_level"`
	LogFile        string        `yaml:"log_file"`
	ProductMatch   string        `yaml:"product_match"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	UserAgent      string        `yaml:"user_agent"`
	SMTP           SMTPConfig    `yaml:"smtp"`
}

// SMTPConfig configures the failure notification. Mail is sent only when Host is set.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Email    string `yaml:"email"`
}

func Defaults() *Config {
	return &Config{
		DatabaseDriver: db.DriverSQLite,
		DatabaseURL:    "price.db",
		LockTTL:        lock.DefaultTTL,
		LogLevel:       "info",
		ProductMatch:   string(dimension.MatchPattern),
		FetchTimeout:   crawler.DefaultTimeout,
		UserAgent:      crawler.DefaultUserAgent,
	}
}

// Load layers defaults, the optional YAML file at path, .env files and the environment.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env from the project root, then the working directory
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()

	cfg.DatabaseDriver = getEnv("DATABASE_DRIVER", cfg.DatabaseDriver)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.PushgatewayURL = getEnv("PUSHGATEWAY_URL", cfg.PushgatewayURL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.ProductMatch = getEnv("PRODUCT_MATCH", cfg.ProductMatch)
	cfg.UserAgent = getEnv("USER_AGENT", cfg.UserAgent)
	cfg.SMTP.Host = getEnv("SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Username = getEnv("SMTP_USERNAME", cfg.SMTP.Username)
	cfg.SMTP.Password = getEnv("SMTP_PASSWORD", cfg.SMTP.Password)
	cfg.SMTP.Email = getEnv("NOTIFY_EMAIL", cfg.SMTP.Email)

	var err error
	if cfg.FetchTimeout, err = getDuration("FETCH_TIMEOUT", cfg.FetchTimeout); err != nil {
		return nil, err
	}
	if cfg.LockTTL, err = getDuration("LOCK_TTL", cfg.LockTTL); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case db.DriverSQLite, db.DriverPostgres, db.DriverPgx:
	default:
		return ErrUnknownDriver
	}
	if c.DatabaseURL == "" {
		return ErrMissingDatabase
	}
	if _, err := dimension.ParseMatchMode(c.ProductMatch); err != nil {
		return ErrUnknownMatchMode
	}
	if c.FetchTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.SMTP.Host != "" && c.SMTP.Email == "" {
		return ErrMissingEmail
	}
	return nil
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getDuration(k string, d time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return parsed, nil
}
