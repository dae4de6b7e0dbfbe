package main

import (
	"os"
	"strconv"
	"time"

	"github.com/jessevdk/go-flags"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the HTTP server listens on (e.g. "0.0.0.0:8080")
	BindAddress string
	// SerialPort is the path to the module's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string
	// BaudRate is the host baud rate. Modules answer AT commands at 38400.
	BaudRate int
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string
	// ATTimeout bounds every AT exchange with the module
	ATTimeout time.Duration
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 38400
		c.LogLevel = "info"
		c.ATTimeout = 100 * time.Millisecond
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if timeout := os.Getenv("AT_TIMEOUT"); timeout != "" {
			if d, err := time.ParseDuration(timeout); err == nil {
				c.ATTimeout = d
			}
		}

		return nil
	}
}

// WithFlags loads configuration from the global options of p. Only options
// given on the command line override earlier values.
func WithFlags(p *flags.Parser) ConfigOption {
	return func(c *Config) error {
		given := func(name string) (any, bool) {
			opt := p.FindOptionByLongName(name)
			if opt == nil || !opt.IsSet() || opt.IsSetDefault() {
				return nil, false
			}
			return opt.Value(), true
		}

		if v, ok := given("bind-address"); ok {
			c.BindAddress = v.(string)
		}
		if v, ok := given("serial-port"); ok {
			c.SerialPort = v.(string)
		}
		if v, ok := given("baud-rate"); ok {
			c.BaudRate = v.(int)
		}
		if v, ok := given("log-level"); ok {
			c.LogLevel = v.(string)
		}
		if v, ok := given("at-timeout"); ok {
			c.ATTimeout = v.(time.Duration)
		}
		return nil
	}
}
