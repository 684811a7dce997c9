package optimizer

import (
	"errors"
	"math"
	"time"
)

const (
	DefaultMaxRetries     = 3
	DefaultInitialDelay   = time.Second
	DefaultAttemptTimeout = 120 * time.Second
)

// Config bounds a single Submit call.
type Config struct {
	// MaxRetries is the number of attempts allowed after the first one.
	MaxRetries int `mapstructure:"max-retries"`
	// InitialDelay is the wait after the first failed attempt; it doubles after each retry.
	InitialDelay time.Duration `mapstructure:"initial-delay"`
	// AttemptTimeout bounds each attempt. Zero disables the bound.
	AttemptTimeout time.Duration `mapstructure:"attempt-timeout"`
	// MaxDelay caps a single backoff wait. Zero means no cap.
	MaxDelay time.Duration `mapstructure:"max-delay"`
	// Jitter randomizes each wait within [delay/2, delay].
	Jitter bool `mapstructure:"jitter"`
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:     DefaultMaxRetries,
		InitialDelay:   DefaultInitialDelay,
		AttemptTimeout: DefaultAttemptTimeout,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("max-retries must not be negative"))
	}
	if c.InitialDelay <= 0 {
		errs = append(errs, errors.New("initial-delay must be positive"))
	}
	if c.AttemptTimeout < 0 {
		errs = append(errs, errors.New("attempt-timeout must not be negative"))
	}
	if c.MaxDelay < 0 {
		errs = append(errs, errors.New("max-delay must not be negative"))
	}
	return errors.Join(errs...)
}

// Delay returns the wait that follows failed attempt k (0-based):
// InitialDelay * 2^k, capped by MaxDelay and saturating instead of overflowing.
func (c Config) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	d := c.InitialDelay
	for i := 0; i < attempt && d > 0; i++ {
		if d > math.MaxInt64/2 {
			d = math.MaxInt64
			break
		}
		d *= 2
	}

	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}
