package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the tenantcore server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Tenant   TenantConfig
}

type ServerConfig struct {
	Port     int
	Env      string
	LogLevel string

	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a reverse proxy that overwrites those headers.
	TrustProxy bool
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional. An empty URL selects the in-process cache.
type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	Provider        string
	RateLimitPerMin int
	IdentityToolkit IdentityToolkitConfig
	Local           LocalAuthConfig
}

type IdentityToolkitConfig struct {
	APIKey               string
	ServiceAccountBase64 string
	ProjectID            string
	Timeout              time.Duration
}

type LocalAuthConfig struct {
	Secret          string
	Issuer          string
	IDTokenTTL      time.Duration
	RefreshTokenTTL time.Duration
}

type TenantConfig struct {
	CacheTTL time.Duration
}

const (
	ProviderIdentityToolkit = "identitytoolkit"
	ProviderLocal           = "local"

	minLocalSecretLen = 32
)

var validProviders = map[string]bool{
	ProviderIdentityToolkit: true,
	ProviderLocal:           true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load reads configuration from environment variables, after merging a .env
// file from the working directory when one exists, and returns a validated
// Config. Variables already set in the environment take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     envInt("TENANTCORE_PORT", 8080),
			Env:      envString("TENANTCORE_ENV", "development"),
			LogLevel: strings.ToLower(envString("LOG_LEVEL", "info")),

			TrustProxy: envBool("TRUST_PROXY_HEADERS", false),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Auth: AuthConfig{
			Provider:        envString("AUTH_PROVIDER", ProviderIdentityToolkit),
			RateLimitPerMin: envInt("AUTH_RATE_LIMIT_PER_MIN", 20),
			IdentityToolkit: IdentityToolkitConfig{
				APIKey:               os.Getenv("API_KEY"),
				ServiceAccountBase64: os.Getenv("FIREBASE_SERVICE_ACCOUNT_BASE64"),
				ProjectID:            os.Getenv("FIREBASE_PROJECT_ID"),
				Timeout:              envDuration("IDENTITY_TIMEOUT", 10*time.Second),
			},
			Local: LocalAuthConfig{
				Secret:          os.Getenv("LOCAL_AUTH_SECRET"),
				Issuer:          envString("LOCAL_AUTH_ISSUER", "tenantcore"),
				IDTokenTTL:      envDuration("LOCAL_ID_TOKEN_TTL", time.Hour),
				RefreshTokenTTL: envDuration("LOCAL_REFRESH_TOKEN_TTL", 30*24*time.Hour),
			},
		},
		Tenant: TenantConfig{
			CacheTTL: envDuration("TENANT_CACHE_TTL", 5*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL != "" &&
		!strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Server.LogLevel)
	}

	if !validProviders[c.Auth.Provider] {
		return fmt.Errorf("AUTH_PROVIDER must be one of identitytoolkit, local; got %q", c.Auth.Provider)
	}

	switch c.Auth.Provider {
	case ProviderIdentityToolkit:
		if c.Auth.IdentityToolkit.APIKey == "" {
			return fmt.Errorf("API_KEY is required when AUTH_PROVIDER is identitytoolkit")
		}
		if c.Auth.IdentityToolkit.ProjectID == "" && c.Auth.IdentityToolkit.ServiceAccountBase64 == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID or FIREBASE_SERVICE_ACCOUNT_BASE64 is required when AUTH_PROVIDER is identitytoolkit")
		}
	case ProviderLocal:
		if len(c.Auth.Local.Secret) < minLocalSecretLen {
			return fmt.Errorf("LOCAL_AUTH_SECRET must be at least %d bytes when AUTH_PROVIDER is local", minLocalSecretLen)
		}
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
