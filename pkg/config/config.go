// Package config holds the flat invocation configuration the engine
// consumes. Loading it from profile or credential files is the CLI
// layer's concern; the engine only reads the resolved record.
package config

import "time"

// Defaults applied by Normalize.
const (
	DefaultMaxAttempts = 4
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultHTTPTimeout = 60 * time.Second
)

// Config is the resolved per-invocation configuration.
type Config struct {
	// Region selects the control-plane region when no explicit region
	// argument is given.
	Region string

	// EndpointURL overrides the endpoint for the service being called.
	// A single %s placeholder is substituted with the service name.
	EndpointURL string

	// CDPEndpointURL overrides the shared CDP endpoint for all CDP
	// services, with the same %s substitution.
	CDPEndpointURL string

	// MaxAttempts bounds the transport retry loop, first try included.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff between retries.
	BaseDelay time.Duration

	// HTTPTimeout bounds one HTTP exchange.
	HTTPTimeout time.Duration
}

// Normalize fills unset fields with defaults and returns the config for
// chaining.
func (c *Config) Normalize() *Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	return c
}
