// Package config loads server settings from the environment. A .env file in
// the working directory is read first; real environment variables win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/msomdec/coursewatch/internal/watch"
)

// Config holds everything main needs to wire the server.
type Config struct {
	Port         string
	DatabasePath string
	JWTSecret    string
	CookieSecure bool
	BcryptCost   int

	Thresholds     watch.Thresholds
	SessionIdleTTL time.Duration

	// EventRate and EventBurst bound player events per viewer.
	EventRate  float64
	EventBurst float64
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (*Config, error) {
	th := watch.DefaultThresholds()
	c := &Config{
		Port:         envOrDefault("PORT", "8080"),
		DatabasePath: envOrDefault("DATABASE_PATH", "coursewatch.db"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		// Secure cookies unless explicitly disabled for local development.
		CookieSecure: os.Getenv("COOKIE_SECURE") != "false",
	}

	var errs []error
	c.BcryptCost = intEnv("BCRYPT_COST", 12, &errs)
	th.SkipThreshold = floatEnv("WATCH_SKIP_THRESHOLD", th.SkipThreshold, &errs)
	th.TimeRequirementRatio = floatEnv("WATCH_TIME_REQUIREMENT_RATIO", th.TimeRequirementRatio, &errs)
	th.CompletionThreshold = floatEnv("WATCH_COMPLETION_THRESHOLD", th.CompletionThreshold, &errs)
	th.MinCheatScore = intEnv("WATCH_MIN_CHEAT_SCORE", th.MinCheatScore, &errs)
	c.Thresholds = th
	c.SessionIdleTTL = durationEnv("WATCH_SESSION_IDLE_TTL", 30*time.Minute, &errs)
	c.EventRate = floatEnv("EVENT_RATE", 10, &errs)
	c.EventBurst = floatEnv("EVENT_BURST", 40, &errs)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 14 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", c.BcryptCost)
	}
	if c.EventRate <= 0 || c.EventBurst < 1 {
		return fmt.Errorf("EVENT_RATE must be positive and EVENT_BURST at least 1")
	}
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("watch thresholds: %w", err)
	}
	return nil
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func intEnv(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return n
}

func floatEnv(key string, def float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return f
}

func durationEnv(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return d
}
