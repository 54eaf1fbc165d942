package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PACING_DELAY", "")
	t.Setenv("WRAPPED_CACHE_TTL", "")
	t.Setenv("CHUNK_SIZE", "")

	cfg := Load()
	if cfg.PacingDelay != 2*time.Second {
		t.Errorf("PacingDelay = %v, want 2s", cfg.PacingDelay)
	}
	if cfg.WrappedCacheTTL != 300*time.Second {
		t.Errorf("WrappedCacheTTL = %v, want 300s", cfg.WrappedCacheTTL)
	}
	if cfg.ChunkSize != 1000 {
		t.Errorf("ChunkSize = %d, want 1000", cfg.ChunkSize)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"Go duration", "1500ms", 1500 * time.Millisecond},
		{"Plain seconds", "300", 300 * time.Second},
		{"Zero", "0s", 0},
		{"Invalid falls back", "soon", 5 * time.Second},
		{"Empty falls back", "", 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := getEnvAsDuration("TEST_DURATION", 5*time.Second); got != tt.want {
				t.Errorf("getEnvAsDuration(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_INT", "not-a-number")
	if got := getEnvAsInt("TEST_INT", 7); got != 7 {
		t.Errorf("getEnvAsInt = %d, want 7", got)
	}
	t.Setenv("TEST_INT", "42")
	if got := getEnvAsInt("TEST_INT", 7); got != 42 {
		t.Errorf("getEnvAsInt = %d, want 42", got)
	}
}
