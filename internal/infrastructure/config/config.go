package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the session CLI.
// All configuration is loaded from YAML and can be overridden by
// environment variables.
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Session  SessionConfig  `yaml:"session"`
	Store    StoreConfig    `yaml:"store"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MQTTConfig contains broker connection settings.
type MQTTConfig struct {
	// URL is the broker address, e.g. "tcp://localhost:1883" or
	// "ssl://broker.example.com:8883".
	URL string `yaml:"url"`

	// ClientID identifies this client to the broker. Generated from the
	// session identity when empty.
	ClientID string `yaml:"client_id"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Protocol selects the transport adapter: 4 for MQTT 3.1.1, 5 for
	// MQTT 5.
	Protocol int `yaml:"protocol"`

	// CleanSession starts a fresh broker-side session on connect.
	CleanSession bool `yaml:"clean_session"`

	KeepAlive int `yaml:"keep_alive"` // seconds

	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig bounds the transport's reconnect backoff.
type ReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"` // seconds
	MaxDelay     int `yaml:"max_delay"`     // seconds
}

// SessionConfig contains session-level defaults.
type SessionConfig struct {
	// QoS is the default delivery level for publishes and
	// subscriptions (0, 1, or 2).
	QoS int `yaml:"qos"`

	// Mode is the default serialization mode: auto, string or json.
	Mode string `yaml:"mode"`

	// ExcludeSelf suppresses the session's own publications on CLI
	// subscriptions.
	ExcludeSelf bool `yaml:"exclude_self"`

	// SelfWindowMs bounds fingerprint-based echo suppression.
	SelfWindowMs int `yaml:"self_window_ms"`

	// Topics are the filters the CLI subscribes to.
	Topics []string `yaml:"topics"`
}

// StoreConfig contains the persistent in-flight message store settings.
type StoreConfig struct {
	// Enabled turns on the SQLite-backed paho store (MQTT 3.1.1 only).
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite file location.
	Path string `yaml:"path"`
}

// InfluxDBConfig contains telemetry settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
	Output string `yaml:"output"` // stdout or stderr
}

// Load reads configuration from a YAML file and applies environment
// variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GLSESSION_SECTION_KEY.
// For example: GLSESSION_MQTT_URL, GLSESSION_INFLUXDB_TOKEN.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			URL:          "tcp://localhost:1883",
			Protocol:     5,
			CleanSession: true,
			KeepAlive:    60,
			Reconnect: ReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Session: SessionConfig{
			QoS:          1,
			Mode:         "auto",
			ExcludeSelf:  true,
			SelfWindowMs: 100,
		},
		Store: StoreConfig{
			Path: "./data/glsession.db",
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Only secrets and deployment-specific values are
// overridable.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GLSESSION_MQTT_URL"); v != "" {
		cfg.MQTT.URL = v
	}
	if v := os.Getenv("GLSESSION_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.ClientID = v
	}
	if v := os.Getenv("GLSESSION_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("GLSESSION_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("GLSESSION_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("GLSESSION_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.MQTT.URL == "" {
		return fmt.Errorf("mqtt.url is required")
	}
	if c.MQTT.Protocol != 4 && c.MQTT.Protocol != 5 {
		return fmt.Errorf("mqtt.protocol must be 4 or 5, got %d", c.MQTT.Protocol)
	}
	if c.Session.QoS < 0 || c.Session.QoS > 2 {
		return fmt.Errorf("session.qos must be 0, 1, or 2, got %d", c.Session.QoS)
	}
	if c.Session.SelfWindowMs < 0 {
		return fmt.Errorf("session.self_window_ms must not be negative")
	}
	switch c.Session.Mode {
	case "", "auto", "string", "json":
	default:
		return fmt.Errorf("session.mode must be auto, string, or json, got %q", c.Session.Mode)
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store.path is required when the store is enabled")
	}
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			return fmt.Errorf("influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			return fmt.Errorf("influxdb.token is required when influxdb is enabled")
		}
	}
	return nil
}

// KeepAliveDuration returns the keepalive as a time.Duration.
func (c *MQTTConfig) KeepAliveDuration() time.Duration {
	return time.Duration(c.KeepAlive) * time.Second
}

// SelfWindow returns the suppression window as a time.Duration.
func (c *SessionConfig) SelfWindow() time.Duration {
	return time.Duration(c.SelfWindowMs) * time.Millisecond
}
