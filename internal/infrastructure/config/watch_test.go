package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("mqtt:\n  url: tcp://one:1883\n"), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 1)
	err := Watch(ctx, path, func(cfg *Config) {
		select {
		case changes <- cfg:
		default:
		}
	}, nil)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("mqtt:\n  url: tcp://two:1883\n"), 0600); err != nil {
		t.Fatalf("rewriting config: %v", err)
	}

	select {
	case cfg := <-changes:
		if cfg.MQTT.URL != "tcp://two:1883" {
			t.Errorf("reloaded mqtt.url = %q, want tcp://two:1883", cfg.MQTT.URL)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed after config write")
	}
}

func TestWatchReportsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errs := make(chan error, 1)
	err := Watch(ctx, path,
		func(*Config) { t.Error("invalid config delivered as a change") },
		func(err error) {
			select {
			case errs <- err:
			default:
			}
		},
	)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("mqtt:\n  protocol: 9\n"), 0600); err != nil {
		t.Fatalf("rewriting config: %v", err)
	}

	select {
	case <-errs:
	case <-time.After(5 * time.Second):
		t.Fatal("no error reported for invalid config")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := Watch(ctx, "/nonexistent/dir/config.yaml", func(*Config) {}, nil); err == nil {
		t.Fatal("Watch() expected error for missing directory")
	}
}
