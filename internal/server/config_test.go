package server

import (
	"testing"
	"time"
)

// TestDefaultConfigReaperKnobs tests that the reaper defaults match the
// documented sweep cadence: a one-minute check interval and a two-minute
// idle threshold.
func TestDefaultConfigReaperKnobs(t *testing.T) {
	cfg := NewConfig()

	if cfg.IdleCheckInterval != time.Minute {
		t.Errorf("IdleCheckInterval default: got %s want 1m", cfg.IdleCheckInterval)
	}
	if cfg.IdleThreshold != 2*time.Minute {
		t.Errorf("IdleThreshold default: got %s want 2m", cfg.IdleThreshold)
	}
}

// TestNewConfigFromEnvReaperKnobs tests loading the reaper schedule from
// environment variables, expressed in seconds.
func TestNewConfigFromEnvReaperKnobs(t *testing.T) {
	t.Setenv("IDLE_CHECK_INTERVAL", "15")
	t.Setenv("IDLE_THRESHOLD", "45")

	cfg := NewConfigFromEnv()

	if cfg.IdleCheckInterval != 15*time.Second {
		t.Errorf("IdleCheckInterval from env: got %s want 15s", cfg.IdleCheckInterval)
	}
	if cfg.IdleThreshold != 45*time.Second {
		t.Errorf("IdleThreshold from env: got %s want 45s", cfg.IdleThreshold)
	}
}

// TestNewConfigFromEnvRejectsGarbage tests that unparseable or non-positive
// values fall back to the defaults instead of poisoning the config.
func TestNewConfigFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("IDLE_CHECK_INTERVAL", "soon")
	t.Setenv("IDLE_THRESHOLD", "-10")
	t.Setenv("MAX_MESSAGE_SIZE", "0")

	cfg := NewConfigFromEnv()

	if cfg.IdleCheckInterval != time.Minute {
		t.Errorf("Garbage IDLE_CHECK_INTERVAL accepted: %s", cfg.IdleCheckInterval)
	}
	if cfg.IdleThreshold != 2*time.Minute {
		t.Errorf("Negative IDLE_THRESHOLD accepted: %s", cfg.IdleThreshold)
	}
	if cfg.MaxMessageSize != 512 {
		t.Errorf("Zero MAX_MESSAGE_SIZE accepted: %d", cfg.MaxMessageSize)
	}
}

// TestSetConfigSanitizesZeroValues tests that applying an empty Config
// restores every field to a usable default.
func TestSetConfigSanitizesZeroValues(t *testing.T) {
	SetConfig(&Config{})
	t.Cleanup(func() { SetConfig(nil) })

	cfg := currentConfig()
	if cfg.Port != ":8080" {
		t.Errorf("Port not defaulted: %q", cfg.Port)
	}
	if cfg.RateLimit.Burst != 5 || cfg.RateLimit.RefillInterval != time.Second {
		t.Errorf("Rate limit not defaulted: %+v", cfg.RateLimit)
	}
	if cfg.IdleCheckInterval != time.Minute || cfg.IdleThreshold != 2*time.Minute {
		t.Errorf("Reaper knobs not defaulted: %s / %s", cfg.IdleCheckInterval, cfg.IdleThreshold)
	}
}
