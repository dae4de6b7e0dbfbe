package hc05

import (
	"log/slog"
	"time"
)

const (
	// DefaultATTimeout bounds every AT command transmit and receive.
	DefaultATTimeout = 100 * time.Millisecond
	// roleExtra is added to the AT timeout for AT+ROLE?, which the module
	// answers noticeably slower than other queries.
	roleExtra = 1000 * time.Millisecond
)

// Config holds the settings of a Module. Use NewConfigBuilder to create one.
type Config struct {
	dialer      Dialer
	atTimeout   time.Duration
	roleTimeout time.Duration
	idleTimeout time.Duration
	logger      *slog.Logger
}

func (c *Config) validate() error {
	if c.dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.atTimeout <= 0 {
		c.atTimeout = DefaultATTimeout
	}
	if c.roleTimeout <= 0 {
		c.roleTimeout = c.atTimeout + roleExtra
	}
	if c.idleTimeout <= 0 {
		c.idleTimeout = c.atTimeout
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
}

// ConfigBuilder assembles a Config step by step.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithDialer sets the Dialer used by New to reach the module. Required.
func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.dialer = d
	return b
}

// WithATTimeout sets the timeout applied to AT command transfers.
func (b *ConfigBuilder) WithATTimeout(d time.Duration) *ConfigBuilder {
	b.config.atTimeout = d
	return b
}

// WithRoleTimeout overrides the receive timeout of the role query. It
// defaults to the AT timeout plus one second.
func (b *ConfigBuilder) WithRoleTimeout(d time.Duration) *ConfigBuilder {
	b.config.roleTimeout = d
	return b
}

// WithIdleTimeout sets the inter-byte gap that ends a variable length
// response. It defaults to the AT timeout.
func (b *ConfigBuilder) WithIdleTimeout(d time.Duration) *ConfigBuilder {
	b.config.idleTimeout = d
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.logger = l
	return b
}

// Build validates the collected settings and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	c := b.config
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	c.setDefaults()
	return c, nil
}

// ATTimeout reports the effective AT command timeout.
func (c Config) ATTimeout() time.Duration { return c.atTimeout }

// RoleTimeout reports the effective role query timeout.
func (c Config) RoleTimeout() time.Duration { return c.roleTimeout }

// IdleTimeout reports the effective inter-byte idle timeout.
func (c Config) IdleTimeout() time.Duration { return c.idleTimeout }
