package main

import (
	"testing"
	"time"

	"github.com/jessevdk/go-flags"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(WithDefaults())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	want := Config{
		BindAddress: "0.0.0.0:8080",
		SerialPort:  "/dev/ttyUSB0",
		BaudRate:    38400,
		LogLevel:    "info",
		ATTimeout:   100 * time.Millisecond,
	}
	if *config != want {
		t.Errorf("LoadConfig() = %+v, want %+v", *config, want)
	}
}

func TestWithEnv(t *testing.T) {
	t.Setenv("BIND_ADDRESS", "127.0.0.1:9000")
	t.Setenv("SERIAL_PORT", "/dev/rfcomm0")
	t.Setenv("BAUD_RATE", "9600")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("AT_TIMEOUT", "250ms")

	config, err := LoadConfig(WithDefaults(), WithEnv())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	want := Config{
		BindAddress: "127.0.0.1:9000",
		SerialPort:  "/dev/rfcomm0",
		BaudRate:    9600,
		LogLevel:    "debug",
		ATTimeout:   250 * time.Millisecond,
	}
	if *config != want {
		t.Errorf("LoadConfig() = %+v, want %+v", *config, want)
	}
}

func TestWithEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("BAUD_RATE", "fast")
	t.Setenv("AT_TIMEOUT", "soon")

	config, err := LoadConfig(WithDefaults(), WithEnv())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.BaudRate != 38400 {
		t.Errorf("BaudRate = %d, want default 38400", config.BaudRate)
	}
	if config.ATTimeout != 100*time.Millisecond {
		t.Errorf("ATTimeout = %v, want default 100ms", config.ATTimeout)
	}
}

func TestWithFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		want Config
	}{
		{
			name: "No flags keeps earlier values",
			env:  map[string]string{"SERIAL_PORT": "/dev/ttyS1"},
			want: Config{
				BindAddress: "0.0.0.0:8080",
				SerialPort:  "/dev/ttyS1",
				BaudRate:    38400,
				LogLevel:    "info",
				ATTimeout:   100 * time.Millisecond,
			},
		},
		{
			name: "Flags override environment",
			args: []string{"-p", "/dev/ttyAMA0", "--baud-rate", "115200", "--at-timeout", "1s"},
			env:  map[string]string{"SERIAL_PORT": "/dev/ttyS1", "BAUD_RATE": "9600"},
			want: Config{
				BindAddress: "0.0.0.0:8080",
				SerialPort:  "/dev/ttyAMA0",
				BaudRate:    115200,
				LogLevel:    "info",
				ATTimeout:   time.Second,
			},
		},
		{
			name: "Bind address and log level",
			args: []string{"--bind-address", ":9090", "--log-level", "warn"},
			want: Config{
				BindAddress: ":9090",
				SerialPort:  "/dev/ttyUSB0",
				BaudRate:    38400,
				LogLevel:    "warn",
				ATTimeout:   100 * time.Millisecond,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			var globals globalOptions
			parser := flags.NewParser(&globals, flags.None)
			if _, err := parser.ParseArgs(tt.args); err != nil {
				t.Fatalf("ParseArgs() error = %v", err)
			}

			config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(parser))
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			if *config != tt.want {
				t.Errorf("LoadConfig() = %+v, want %+v", *config, tt.want)
			}
		})
	}
}
