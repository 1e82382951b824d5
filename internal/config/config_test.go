package config_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/msomdec/coursewatch/internal/config"
	"github.com/msomdec/coursewatch/internal/domain"
	"github.com/msomdec/coursewatch/internal/watch"
)

const validSecret = "0123456789abcdef0123456789abcdef"

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", validSecret)

	c, err := config.FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if c.Port != "8080" || c.DatabasePath != "coursewatch.db" || !c.CookieSecure || c.BcryptCost != 12 {
		t.Fatalf("unexpected server defaults: %+v", c)
	}
	if c.Thresholds != watch.DefaultThresholds() {
		t.Fatalf("unexpected thresholds: %+v", c.Thresholds)
	}
	if c.SessionIdleTTL != 30*time.Minute || c.EventRate != 10 || c.EventBurst != 40 {
		t.Fatalf("unexpected session defaults: %+v", c)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", validSecret)
	t.Setenv("PORT", "9090")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("WATCH_SKIP_THRESHOLD", "5")
	t.Setenv("WATCH_TIME_REQUIREMENT_RATIO", "0.8")
	t.Setenv("WATCH_COMPLETION_THRESHOLD", "90")
	t.Setenv("WATCH_MIN_CHEAT_SCORE", "60")
	t.Setenv("WATCH_SESSION_IDLE_TTL", "90s")

	c, err := config.FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if c.Port != "9090" || c.CookieSecure || c.BcryptCost != 4 {
		t.Fatalf("server overrides not applied: %+v", c)
	}
	th := c.Thresholds
	if th.SkipThreshold != 5 || th.TimeRequirementRatio != 0.8 || th.CompletionThreshold != 90 || th.MinCheatScore != 60 {
		t.Fatalf("threshold overrides not applied: %+v", th)
	}
	if c.SessionIdleTTL != 90*time.Second {
		t.Fatalf("expected 90s idle ttl, got %v", c.SessionIdleTTL)
	}
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET environment variable is required"},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "at least 32 characters"},
		{"bad bcrypt", map[string]string{"BCRYPT_COST": "abc"}, "invalid BCRYPT_COST"},
		{"bcrypt range", map[string]string{"BCRYPT_COST": "20"}, "between 4 and 14"},
		{"bad ttl", map[string]string{"WATCH_SESSION_IDLE_TTL": "soon"}, "invalid WATCH_SESSION_IDLE_TTL"},
		{"bad rate", map[string]string{"EVENT_RATE": "0"}, "EVENT_RATE"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", validSecret)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := config.FromEnv()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestFromEnv_InvalidThresholds(t *testing.T) {
	t.Setenv("JWT_SECRET", validSecret)
	t.Setenv("WATCH_TIME_REQUIREMENT_RATIO", "1.5")

	_, err := config.FromEnv()
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
