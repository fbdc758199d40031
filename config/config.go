// Package config loads the node configuration in layers: defaults first,
// then an optional YAML file, then environment variables, then explicitly
// set command line flags. Later layers win.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/nikosgri/sensornode/at"
)

// Config holds the node configuration.
type Config struct {
	// Wifi is the access point the modem joins.
	Wifi WifiConfig `yaml:"wifi"`
	// Server is the ingest endpoint reports are sent to.
	Server ServerConfig `yaml:"server"`
	// Serial is the modem UART.
	Serial SerialConfig `yaml:"serial"`
	// Cycle tunes the report duty cycle.
	Cycle CycleConfig `yaml:"cycle"`
	// Sensor is the optional Modbus measurement input.
	Sensor SensorConfig `yaml:"sensor"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level"`
	// NodeID overrides the report identifier. Leave empty to use the modem
	// MAC, falling back to the host machine id.
	NodeID string `yaml:"node_id"`
	// Profile carries the AT command set. A config file may override
	// individual commands or response tags; anything not named keeps its
	// default.
	Profile at.Profile `yaml:"profile"`
}

type WifiConfig struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
}

type ServerConfig struct {
	// Host is the report server address (e.g. "192.168.1.10")
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type SerialConfig struct {
	// Port is the path to the modem's serial port (e.g. "/dev/ttyUSB0")
	Port string `yaml:"port"`
	// Baud is the baud rate for serial communication with the modem
	Baud int `yaml:"baud"`
}

type CycleConfig struct {
	// SleepSeconds is the suspend interval between report runs.
	SleepSeconds int `yaml:"sleep_seconds"`
	// MaxRetries bounds the handler failures tolerated in one run.
	MaxRetries int `yaml:"max_retries"`
	// Timezone is the SNTP timezone offset passed to the modem.
	Timezone  int    `yaml:"timezone"`
	NTPServer string `yaml:"ntp_server"`
}

type SensorConfig struct {
	Enabled bool `yaml:"enabled"`
	// Port is the sensor bus serial device, distinct from the modem UART.
	Port     string `yaml:"port"`
	Baud     int    `yaml:"baud"`
	SlaveID  uint8  `yaml:"slave_id"`
	Register uint16 `yaml:"register"`
}

// Option is a function that modifies a Config
type Option func(*Config) error

// Load creates a new config by applying the given options in order
func Load(opts ...Option) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() Option {
	return func(c *Config) error {
		c.Server.Port = 8080
		c.Serial.Port = "/dev/ttyUSB0"
		c.Serial.Baud = 115200
		c.Cycle.SleepSeconds = 1800
		c.Cycle.MaxRetries = 5
		c.Cycle.Timezone = 2
		c.Cycle.NTPServer = "2.gr.pool.ntp.org"
		c.LogLevel = "info"
		c.Profile = at.DefaultProfile()
		return nil
	}
}

// WithFile merges a YAML configuration file. An empty path is a no-op so
// callers can pass the flag value straight through.
func WithFile(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() Option {
	return func(c *Config) error {
		if ssid := os.Getenv("WIFI_SSID"); ssid != "" {
			c.Wifi.SSID = ssid
		}

		if pass := os.Getenv("WIFI_PASSWORD"); pass != "" {
			c.Wifi.Password = pass
		}

		if host := os.Getenv("SERVER_HOST"); host != "" {
			c.Server.Host = host
		}

		if port := os.Getenv("SERVER_PORT"); port != "" {
			if p, err := strconv.Atoi(port); err == nil {
				c.Server.Port = p
			}
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.Serial.Port = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.Serial.Baud = b
			}
		}

		if sleep := os.Getenv("SLEEP_SECONDS"); sleep != "" {
			if s, err := strconv.Atoi(sleep); err == nil {
				c.Cycle.SleepSeconds = s
			}
		}

		if server := os.Getenv("NTP_SERVER"); server != "" {
			c.Cycle.NTPServer = server
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if id := os.Getenv("NODE_ID"); id != "" {
			c.NodeID = id
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *pflag.FlagSet) Option {
	return func(c *Config) error {
		fSet.Visit(func(f *pflag.Flag) {
			switch f.Name {
			case "port":
				c.Serial.Port = f.Value.String()
			case "baud":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.Serial.Baud = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			}
		})
		return nil
	}
}

// Validate checks the fields the report cycle cannot run without.
func (c *Config) Validate() error {
	if c.Wifi.SSID == "" {
		return fmt.Errorf("config: wifi.ssid is required")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("config: server.host is required")
	}
	return nil
}

// Level maps the configured log level onto slog, defaulting to info.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
