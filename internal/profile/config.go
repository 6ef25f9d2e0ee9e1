package profile

import (
	"errors"
	"fmt"
	"time"
)

// Config tunes the adaptive timeout and classification.
type Config struct {
	MinTimeout        time.Duration
	MaxTimeout        time.Duration
	DefaultTimeout    time.Duration
	SlowThreshold     time.Duration
	HistoryWindow     int
	RetryAttempts     int
	TimeoutMultiplier float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MinTimeout:        2 * time.Second,
		MaxTimeout:        30 * time.Second,
		DefaultTimeout:    5 * time.Second,
		SlowThreshold:     8 * time.Second,
		HistoryWindow:     20,
		RetryAttempts:     3,
		TimeoutMultiplier: 2.0,
	}
}

// Validate checks Min <= Default <= Max and that the counters are usable.
func (c Config) Validate() error {
	var errs []error
	if c.MinTimeout <= 0 {
		errs = append(errs, fmt.Errorf("min timeout must be positive, got %s", c.MinTimeout))
	}
	if c.MinTimeout > c.DefaultTimeout || c.DefaultTimeout > c.MaxTimeout {
		errs = append(errs, fmt.Errorf("timeouts must satisfy min <= default <= max, got %s / %s / %s",
			c.MinTimeout, c.DefaultTimeout, c.MaxTimeout))
	}
	if c.SlowThreshold <= 0 {
		errs = append(errs, fmt.Errorf("slow threshold must be positive, got %s", c.SlowThreshold))
	}
	if c.HistoryWindow < 1 {
		errs = append(errs, fmt.Errorf("history window must be >= 1, got %d", c.HistoryWindow))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry attempts must be >= 1, got %d", c.RetryAttempts))
	}
	if c.TimeoutMultiplier <= 0 {
		errs = append(errs, fmt.Errorf("timeout multiplier must be > 0, got %g", c.TimeoutMultiplier))
	}
	return errors.Join(errs...)
}
