package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeConfig writes a temp config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "{}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.URL != "tcp://localhost:1883" {
		t.Errorf("default mqtt.url = %q", cfg.MQTT.URL)
	}
	if cfg.MQTT.Protocol != 5 {
		t.Errorf("default mqtt.protocol = %d, want 5", cfg.MQTT.Protocol)
	}
	if cfg.Session.QoS != 1 {
		t.Errorf("default session.qos = %d, want 1", cfg.Session.QoS)
	}
	if cfg.Session.SelfWindowMs != 100 {
		t.Errorf("default session.self_window_ms = %d, want 100", cfg.Session.SelfWindowMs)
	}
	if !cfg.Session.ExcludeSelf {
		t.Error("default session.exclude_self = false, want true")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  url: "ssl://broker.example.com:8883"
  protocol: 4
  username: "svc"
session:
  qos: 2
  mode: json
  topics:
    - "site/+/state"
    - "site/+/alert"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.URL != "ssl://broker.example.com:8883" {
		t.Errorf("mqtt.url = %q", cfg.MQTT.URL)
	}
	if cfg.MQTT.Protocol != 4 {
		t.Errorf("mqtt.protocol = %d, want 4", cfg.MQTT.Protocol)
	}
	if cfg.Session.Mode != "json" {
		t.Errorf("session.mode = %q, want json", cfg.Session.Mode)
	}
	if len(cfg.Session.Topics) != 2 {
		t.Errorf("session.topics = %v, want 2 entries", cfg.Session.Topics)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GLSESSION_MQTT_URL", "tcp://override:1883")
	t.Setenv("GLSESSION_MQTT_PASSWORD", "secret")

	path := writeConfig(t, `
mqtt:
  url: "tcp://from-file:1883"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.URL != "tcp://override:1883" {
		t.Errorf("mqtt.url = %q, want env override", cfg.MQTT.URL)
	}
	if cfg.MQTT.Password != "secret" {
		t.Errorf("mqtt.password not taken from environment")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(*Config) {}, false},
		{"bad protocol", func(c *Config) { c.MQTT.Protocol = 3 }, true},
		{"bad qos", func(c *Config) { c.Session.QoS = 3 }, true},
		{"negative window", func(c *Config) { c.Session.SelfWindowMs = -1 }, true},
		{"bad mode", func(c *Config) { c.Session.Mode = "xml" }, true},
		{"empty url", func(c *Config) { c.MQTT.URL = "" }, true},
		{"store without path", func(c *Config) { c.Store.Enabled = true; c.Store.Path = "" }, true},
		{"influx without token", func(c *Config) { c.InfluxDB.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := defaultConfig()
	if got := cfg.MQTT.KeepAliveDuration(); got != 60*time.Second {
		t.Errorf("KeepAliveDuration() = %v, want 60s", got)
	}
	if got := cfg.Session.SelfWindow(); got != 100*time.Millisecond {
		t.Errorf("SelfWindow() = %v, want 100ms", got)
	}
}
