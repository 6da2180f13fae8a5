package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	RedisURL    string

	// Shared API key gating the synchronous query surface, plus the IPs
	// that may skip it.
	APIKey          string
	IPAllowlist     []string
	IPAllowlistFile string

	// Base URL of the remote user/push API and the timeout applied to
	// calls against it.
	ProfileAPIBase string
	RemoteTimeout  time.Duration

	// Secret and lifetime for websocket handshake tokens.
	JWTSecret string
	TokenTTL  time.Duration

	ProfileCacheTTL time.Duration
}

// Load reads configuration from environment variables. In development it
// loads from a .env file if present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		APIKey:          os.Getenv("API_KEY"),
		IPAllowlistFile: os.Getenv("IP_ALLOWLIST_FILE"),
		ProfileAPIBase:  getEnv("PROFILE_API_BASE", "http://localhost:3043"),
		RemoteTimeout:   getDuration("REMOTE_TIMEOUT", 10*time.Second),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		TokenTTL:        getDuration("TOKEN_TTL", time.Hour),
		ProfileCacheTTL: getDuration("PROFILE_CACHE_TTL", 5*time.Minute),
	}

	for _, entry := range strings.Split(getEnv("IP_ALLOWLIST", "127.0.0.1"), ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			cfg.IPAllowlist = append(cfg.IPAllowlist, entry)
		}
	}

	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.APIKey == "" {
			panic("API_KEY is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
