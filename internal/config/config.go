// Package config loads service configuration from the environment once at
// startup. The resulting Config is treated as immutable.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the full configuration surface of the API service.
type Config struct {
	// Database
	DatabaseDSN string
	AutoMigrate bool

	// Token service
	AuthSecret      string
	Issuer          string
	Audience        string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Credential verifier
	BcryptCost int

	// Lockout guard
	LockoutThreshold int
	LockoutDuration  time.Duration

	// Server
	ListenAddr      string
	ShutdownTimeout time.Duration

	// Rate limit for auth endpoints (per client IP)
	AuthRateBurst     int
	AuthRatePerSecond int
}

// Load reads the configuration from environment variables. Missing required
// variables are reported together in a single error; that error is fatal at
// startup, never per request.
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.DatabaseDSN = strings.TrimSpace(os.Getenv("TASKERA_PG_DSN"))
	if cfg.DatabaseDSN == "" {
		missing = append(missing, "TASKERA_PG_DSN")
	}

	cfg.AuthSecret = strings.TrimSpace(os.Getenv("TASKERA_AUTH_SECRET"))
	if cfg.AuthSecret == "" {
		missing = append(missing, "TASKERA_AUTH_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.AutoMigrate = getEnvBool("TASKERA_AUTO_MIGRATE", false)
	cfg.Issuer = getEnvString("TASKERA_ISSUER", "taskera")
	cfg.Audience = getEnvString("TASKERA_AUDIENCE", "taskera-api")
	cfg.AccessTokenTTL = getEnvDuration("TASKERA_ACCESS_TTL", 15*time.Minute)
	cfg.RefreshTokenTTL = getEnvDuration("TASKERA_REFRESH_TTL", 14*24*time.Hour)
	cfg.BcryptCost = getEnvInt("TASKERA_BCRYPT_COST", 12)
	cfg.LockoutThreshold = getEnvInt("TASKERA_LOCKOUT_THRESHOLD", 5)
	cfg.LockoutDuration = getEnvDuration("TASKERA_LOCKOUT_DURATION", 15*time.Minute)
	cfg.ListenAddr = getEnvString("TASKERA_LISTEN_ADDR", ":8080")
	cfg.ShutdownTimeout = getEnvDuration("TASKERA_SHUTDOWN_TIMEOUT", 10*time.Second)
	cfg.AuthRateBurst = getEnvInt("TASKERA_AUTH_RATE_BURST", 10)
	cfg.AuthRatePerSecond = getEnvInt("TASKERA_AUTH_RATE_PER_SECOND", 5)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
