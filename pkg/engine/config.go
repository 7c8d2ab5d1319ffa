package engine

import "fmt"

// FailSafeMode determines how the engine handles faulting decision functions.
type FailSafeMode string

const (
	// FailOpen treats a fault as Defer so the fallback decides.
	FailOpen FailSafeMode = "fail-open"

	// FailClosed treats a fault as Deny. This is the default.
	FailClosed FailSafeMode = "fail-closed"
)

// Fallback is the answer given when every provider defers.
type Fallback string

const (
	// FallbackDeny rejects actions no provider allowed. This is the default
	// and matches the host's behaviour for unrecognized modeling actions.
	FallbackDeny Fallback = "deny"

	// FallbackAllow permits actions no provider rejected.
	FallbackAllow Fallback = "allow"
)

// Config contains configuration for the evaluation engine.
type Config struct {
	// Fallback is applied to Defer verdicts.
	// Default: FallbackDeny.
	Fallback Fallback

	// FailSafeMode determines how to handle decision function faults.
	// Default: FailClosed.
	FailSafeMode FailSafeMode
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Fallback:     FallbackDeny,
		FailSafeMode: FailClosed,
	}
}

// Validate validates the engine configuration.
func (c *Config) Validate() error {
	switch c.FailSafeMode {
	case FailOpen, FailClosed:
	default:
		return fmt.Errorf("%w: invalid fail-safe mode %q", ErrInvalidConfig, c.FailSafeMode)
	}

	switch c.Fallback {
	case FallbackAllow, FallbackDeny:
	default:
		return fmt.Errorf("%w: invalid fallback %q", ErrInvalidConfig, c.Fallback)
	}

	return nil
}

// WithFailSafeMode sets the fail-safe mode.
func (c *Config) WithFailSafeMode(mode FailSafeMode) *Config {
	c.FailSafeMode = mode
	return c
}

// WithFallback sets the fallback.
func (c *Config) WithFallback(fallback Fallback) *Config {
	c.Fallback = fallback
	return c
}
