package config

import (
	"os"
	"testing"
	"time"
)

func TestGetenvFloat(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      float64
		expected float64
	}{
		{
			name:     "valid float",
			key:      "TEST_FLOAT",
			value:    "2.5",
			def:      1,
			expected: 2.5,
		},
		{
			name:     "integer is accepted",
			key:      "TEST_FLOAT_INT",
			value:    "3",
			def:      1,
			expected: 3,
		},
		{
			name:     "invalid float uses default",
			key:      "TEST_FLOAT_INVALID",
			value:    "fast",
			def:      1.5,
			expected: 1.5,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_FLOAT_MISSING",
			value:    "",
			def:      0.5,
			expected: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}

			result := getenvFloat(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("getenvFloat() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", nil},
		{"single", "10.0.0.0/8", []string{"10.0.0.0/8"}},
		{"spaces and quotes", ` "a.example.com" , 'b.example.com',, `, []string{"a.example.com", "b.example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitAndTrim(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("splitAndTrim() = %v, want %v", result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("splitAndTrim()[%d] = %q, want %q", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{
			name:     "true value",
			key:      "TEST_BOOL",
			value:    "true",
			def:      false,
			expected: true,
		},
		{
			name:     "false value",
			key:      "TEST_BOOL_FALSE",
			value:    "false",
			def:      true,
			expected: false,
		},
		{
			name:     "invalid value uses default",
			key:      "TEST_BOOL_INVALID",
			value:    "invalid",
			def:      true,
			expected: true,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_BOOL_MISSING",
			value:    "",
			def:      false,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}

			result := mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.RedisEnabled() {
		t.Error("Redis should be disabled without DDC_REDIS_ADDR")
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("CacheTTL = %v, want 30s", cfg.CacheTTL)
	}
	if cfg.FormattedTTLMultiplier != 2.5 {
		t.Errorf("FormattedTTLMultiplier = %v, want 2.5", cfg.FormattedTTLMultiplier)
	}
	if cfg.NotFoundThreshold != 2 {
		t.Errorf("NotFoundThreshold = %d, want 2", cfg.NotFoundThreshold)
	}
	if cfg.MaxConcurrentFetches != 3 {
		t.Errorf("MaxConcurrentFetches = %d, want 3", cfg.MaxConcurrentFetches)
	}

	perf := cfg.PerformanceConfig()
	if err := perf.Validate(); err != nil {
		t.Fatalf("default performance config invalid: %v", err)
	}
	if perf.DefaultTimeout != 5*time.Second || perf.RetryAttempts != 3 || perf.HistoryWindow != 20 {
		t.Errorf("PerformanceConfig() = %+v, want 5s/3/20 defaults", perf)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DDC_REDIS_ADDR", "redis:6379")
	t.Setenv("DDC_RETRY_ATTEMPTS", "5")
	t.Setenv("DDC_TIMEOUT_MULTIPLIER", "1.5")
	t.Setenv("DDC_UNKNOWN_AS_SLOW", "true")
	t.Setenv("DDC_ALLOWED_CIDRS", "10.0.0.0/8, 192.168.0.0/16")

	cfg := Load()

	if !cfg.RedisEnabled() {
		t.Error("Redis should be enabled when DDC_REDIS_ADDR is set")
	}
	if cfg.RetryAttempts != 5 {
		t.Errorf("RetryAttempts = %d, want 5", cfg.RetryAttempts)
	}
	if cfg.PerformanceConfig().TimeoutMultiplier != 1.5 {
		t.Errorf("TimeoutMultiplier = %v, want 1.5", cfg.PerformanceConfig().TimeoutMultiplier)
	}
	if !cfg.UnknownAsSlow {
		t.Error("UnknownAsSlow should be true")
	}
	if len(cfg.AllowedCIDRS) != 2 {
		t.Errorf("AllowedCIDRS = %v, want 2 entries", cfg.AllowedCIDRS)
	}
}

func TestLoadPanics(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "min above max timeout",
			env:  map[string]string{"DDC_MIN_TIMEOUT": "40s"},
		},
		{
			name: "zero retry attempts",
			env:  map[string]string{"DDC_RETRY_ATTEMPTS": "0"},
		},
		{
			name: "formatted ttl shorter than raw",
			env:  map[string]string{"DDC_FORMATTED_TTL_MULTIPLIER": "0.5"},
		},
		{
			name: "missing required redis password",
			env: map[string]string{
				"DDC_REDIS_ADDR":              "redis:6379",
				"DDC_REDIS_PASSWORD_REQUIRED": "true",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("Load() should have panicked")
				}
			}()
			_ = Load()
		})
	}
}
