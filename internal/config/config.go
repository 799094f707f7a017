// Package config loads process configuration from the environment.
//
// An optional .env file in the working directory is read first; real
// environment variables always win over it. Load validates everything once
// so the rest of the program can trust the values.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	ProviderClerk = "clerk"
	ProviderLocal = "local"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port           int
	RequestTimeout time.Duration

	DBDriver    string
	DBPath      string
	DatabaseURL string

	RedisURL     string
	PageCacheTTL time.Duration

	IdentityProvider   string
	ClerkSecretKey     string
	ClerkAPIURL        string
	ClerkWebhookSecret string
	ClerkJWTKey        string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	MediaDefaultFolder  string
	MediaPostsFolder    string

	SignInURL string

	LogLevel  slog.Level
	LogFormat string
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Tests pass a map-backed
// getenv instead of mutating the process environment.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		DBDriver:            strings.ToLower(get("DB_DRIVER", DriverSQLite)),
		DBPath:              get("DB_PATH", "data/devpulse.db"),
		DatabaseURL:         get("DATABASE_URL", ""),
		RedisURL:            get("REDIS_URL", ""),
		ClerkSecretKey:      get("CLERK_SECRET_KEY", ""),
		ClerkAPIURL:         strings.TrimRight(get("CLERK_API_URL", "https://api.clerk.com/v1"), "/"),
		ClerkWebhookSecret:  get("CLERK_WEBHOOK_SECRET", ""),
		ClerkJWTKey:         get("CLERK_JWT_KEY", ""),
		CloudinaryCloudName: get("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    get("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: get("CLOUDINARY_API_SECRET", ""),
		MediaDefaultFolder:  get("MEDIA_DEFAULT_FOLDER", "devpulse_avatars"),
		MediaPostsFolder:    get("MEDIA_POSTS_FOLDER", "devpulse_posts"),
		SignInURL:           get("SIGN_IN_URL", "/sign-in"),
		LogFormat:           strings.ToLower(get("LOG_FORMAT", "text")),
	}

	port, err := strconv.Atoi(get("PORT", "8080"))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("config: invalid PORT %q", getenv("PORT"))
	}
	cfg.Port = port

	if cfg.RequestTimeout, err = parseDuration("REQUEST_TIMEOUT", get("REQUEST_TIMEOUT", "10s")); err != nil {
		return nil, err
	}
	if cfg.PageCacheTTL, err = parseDuration("PAGE_CACHE_TTL", get("PAGE_CACHE_TTL", "5m")); err != nil {
		return nil, err
	}

	switch cfg.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("config: DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return nil, fmt.Errorf("config: unknown DB_DRIVER %q (want sqlite or postgres)", cfg.DBDriver)
	}

	defaultProvider := ProviderLocal
	if cfg.ClerkSecretKey != "" {
		defaultProvider = ProviderClerk
	}
	cfg.IdentityProvider = strings.ToLower(get("IDENTITY_PROVIDER", defaultProvider))
	switch cfg.IdentityProvider {
	case ProviderLocal:
	case ProviderClerk:
		if cfg.ClerkSecretKey == "" {
			return nil, fmt.Errorf("config: CLERK_SECRET_KEY is required when IDENTITY_PROVIDER=clerk")
		}
	default:
		return nil, fmt.Errorf("config: unknown IDENTITY_PROVIDER %q (want clerk or local)", cfg.IdentityProvider)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("config: invalid LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("config: unknown LOG_FORMAT %q (want text or json)", cfg.LogFormat)
	}

	return cfg, nil
}

// NewLogger builds the process logger described by LogLevel and LogFormat.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("config: invalid %s %q", key, value)
	}
	return d, nil
}
