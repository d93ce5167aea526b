package unit

import (
	"testing"
	"time"

	"github.com/chatconnect/relay/internal/server"
)

// TestNewConfigDefaults verifies the default configuration values.
func TestNewConfigDefaults(t *testing.T) {
	cfg := server.NewConfig()

	if cfg.Port != ":8080" {
		t.Errorf("Expected default port :8080, got %s", cfg.Port)
	}
	if cfg.MaxMessageSize != 4096 {
		t.Errorf("Expected default max message size 4096, got %d", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 10 {
		t.Errorf("Expected default rate limit burst 10, got %d", cfg.RateLimit.Burst)
	}
	if cfg.SweepInterval != 10*time.Minute {
		t.Errorf("Expected default sweep interval 10m, got %s", cfg.SweepInterval)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected default shutdown timeout 10s, got %s", cfg.ShutdownTimeout)
	}
}

// TestNewConfigFromEnv verifies that environment variables override the
// defaults and that malformed values fall back.
func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9090")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2")
	t.Setenv("ROOM_SWEEP_INTERVAL", "5m")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg := server.NewConfigFromEnv()

	if cfg.Port != ":9090" {
		t.Errorf("Expected port :9090, got %s", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "http://a.example" {
		t.Errorf("Unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.MaxMessageSize != 1024 {
		t.Errorf("Expected max message size 1024, got %d", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 3 {
		t.Errorf("Expected burst 3, got %d", cfg.RateLimit.Burst)
	}
	if cfg.RateLimit.RefillInterval != 2*time.Second {
		t.Errorf("Expected refill interval 2s, got %s", cfg.RateLimit.RefillInterval)
	}
	if cfg.SweepInterval != 5*time.Minute {
		t.Errorf("Expected sweep interval 5m, got %s", cfg.SweepInterval)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("Expected shutdown timeout 3s, got %s", cfg.ShutdownTimeout)
	}
}

// TestNewConfigFromEnvMalformed verifies fallbacks for unparseable values.
func TestNewConfigFromEnvMalformed(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "not-a-number")
	t.Setenv("ROOM_SWEEP_INTERVAL", "soon")
	t.Setenv("SHUTDOWN_TIMEOUT", "-5s")

	cfg := server.NewConfigFromEnv()

	if cfg.MaxMessageSize != 4096 {
		t.Errorf("Expected fallback max message size, got %d", cfg.MaxMessageSize)
	}
	if cfg.SweepInterval != 10*time.Minute {
		t.Errorf("Expected fallback sweep interval, got %s", cfg.SweepInterval)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected fallback shutdown timeout, got %s", cfg.ShutdownTimeout)
	}
}
