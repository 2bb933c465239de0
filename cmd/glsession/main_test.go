package main

import (
	"context"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, []string{"-config", "/nonexistent/path/config.yaml"})
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_BadFlags verifies flag parse errors are surfaced.
func TestRun_BadFlags(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := run(ctx, []string{"-no-such-flag"}); err == nil {
		t.Fatal("run() should fail on unknown flags")
	}
}

func TestConfigPathDefault(t *testing.T) {
	t.Setenv("GLSESSION_CONFIG", "")
	if got := configPathDefault(); got != defaultConfigPath {
		t.Errorf("configPathDefault() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("GLSESSION_CONFIG", "/etc/glsession/config.yaml")
	if got := configPathDefault(); got != "/etc/glsession/config.yaml" {
		t.Errorf("configPathDefault() = %q, want env value", got)
	}
}
