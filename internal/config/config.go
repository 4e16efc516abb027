package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Env is the deployment environment.
type Env string

const (
	EnvLocal  Env = "local"
	EnvDocker Env = "docker"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	AppEnv          Env           `env:"APP_ENV" envDefault:"local"`
	Port            int           `env:"PORT" envDefault:"8069"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	RateLimitRPS    float64       `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST" envDefault:"40"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Public  Public
	Gateway Gateway
}

// Public describes how the gateway reaches this service; it is the base of every callback URL.
type Public struct {
	BaseURL string `env:"PUBLIC_BASE_URL"`
	Scheme  string `env:"PUBLIC_SCHEME" envDefault:"http"`
	Host    string `env:"PUBLIC_HOST" envDefault:"localhost"`
	Port    int    `env:"PUBLIC_PORT"`
}

// Gateway holds the bKash provider settings.
type Gateway struct {
	ProviderCode   string        `env:"BKASH_PROVIDER_CODE" envDefault:"bkash"`
	BaseURL        string        `env:"BKASH_BASE_URL"`
	AppKey         string        `env:"BKASH_APP_KEY"`
	AppSecret      string        `env:"BKASH_APP_SECRET"`
	Username       string        `env:"BKASH_USERNAME"`
	Password       string        `env:"BKASH_PASSWORD"`
	Token          string        `env:"BKASH_TOKEN"`
	Timeout        time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"30s"`
	LookupRetries  int           `env:"CALLBACK_LOOKUP_RETRIES" envDefault:"0"`
	LookupInterval time.Duration `env:"CALLBACK_LOOKUP_INTERVAL" envDefault:"200ms"`
}

// Configured reports whether enough provider settings are present to reach the gateway.
func (g Gateway) Configured() bool {
	if g.BaseURL == "" || g.AppKey == "" {
		return false
	}
	return g.Token != "" || (g.Username != "" && g.Password != "" && g.AppSecret != "")
}

// Load reads a .env file if present, then configuration from environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return Parse()
}

// Parse reads configuration from environment variables only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}
	if cfg.Public.Port == 0 {
		cfg.Public.Port = cfg.Port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.AppEnv != EnvLocal && c.AppEnv != EnvDocker {
		return fmt.Errorf("invalid APP_ENV: %s (must be 'local' or 'docker')", c.AppEnv)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive")
	}
	if c.Gateway.LookupRetries < 0 {
		return fmt.Errorf("CALLBACK_LOOKUP_RETRIES must not be negative")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Public.BaseURL == "" && c.Public.Host == "" {
		return fmt.Errorf("PUBLIC_BASE_URL or PUBLIC_HOST is required")
	}
	return nil
}

// PublicBaseURL returns the externally reachable base the callback URLs are built on.
func (c *Config) PublicBaseURL() string {
	if c.Public.BaseURL != "" {
		return strings.TrimRight(c.Public.BaseURL, "/")
	}
	return c.Public.Scheme + "://" + net.JoinHostPort(c.Public.Host, strconv.Itoa(c.Public.Port))
}

// ListenAddr returns the HTTP listen address.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.Port))
}
