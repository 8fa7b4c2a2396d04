package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// Config contains runtime configuration required by the service.
type Config struct {
	DBURL         string
	RedisAddr     string
	RedisPassword string

	// AllowedOrigin is the origin prefix accepted by the consent endpoint,
	// already resolved for the current environment.
	AllowedOrigin string

	// WebhookURL is the Discord security channel; empty means alerts are
	// logged locally instead of sent.
	WebhookURL string

	SessionRateLimit    int // max consent writes per session per hour
	IPRateLimit         int // max consent writes per IP per hour
	BlockAlertThreshold int // global blocks/hour at which the attack alert fires

	Port string
}

// Load reads required values from environment variables.
// APP_ENV=development switches the origin gate to the local prefix.
func Load() (Config, error) {
	dbURL := strings.TrimSpace(os.Getenv("DB_URL"))
	if dbURL == "" {
		return Config{}, errors.New("DB_URL required")
	}

	allowedOrigin := envString("ALLOWED_ORIGIN", "https://hakiu.es")
	if strings.TrimSpace(os.Getenv("APP_ENV")) == "development" {
		allowedOrigin = envString("ALLOWED_ORIGIN_DEV", "http://localhost")
	}

	return Config{
		DBURL:               dbURL,
		RedisAddr:           envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		AllowedOrigin:       allowedOrigin,
		WebhookURL:          strings.TrimSpace(os.Getenv("DISCORD_WEBHOOK_URL")),
		SessionRateLimit:    envInt("SESSION_RATE_LIMIT", 10),
		IPRateLimit:         envInt("IP_RATE_LIMIT", 100),
		BlockAlertThreshold: envInt("BLOCK_ALERT_THRESHOLD", 200),
		Port:                envString("PORT", "8080"),
	}, nil
}

// envString reads a string env var with a default fallback.
func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
