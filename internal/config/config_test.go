package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Tracking.MatchRadiusKm != 0.1 {
		t.Errorf("match radius = %v, want 0.1", cfg.Tracking.MatchRadiusKm)
	}
	if cfg.Tracking.HourlyRate != 60 {
		t.Errorf("hourly rate = %v, want 60", cfg.Tracking.HourlyRate)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9000
  session_secret: topsecret
database:
  path: /tmp/onsight.db
tracking:
  match_radius_km: 0.25
  tick_interval: 1m
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.SessionSecret != "topsecret" {
		t.Errorf("session secret = %q", cfg.Server.SessionSecret)
	}
	if cfg.Database.Path != "/tmp/onsight.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.Tracking.MatchRadiusKm != 0.25 {
		t.Errorf("match radius = %v, want 0.25", cfg.Tracking.MatchRadiusKm)
	}
	if cfg.Tracking.TickInterval != Duration(time.Minute) {
		t.Errorf("tick interval = %v, want 1m", cfg.Tracking.TickInterval)
	}
	// Unset fields keep defaults
	if cfg.Tracking.HourlyRate != 60 {
		t.Errorf("hourly rate = %v, want default 60", cfg.Tracking.HourlyRate)
	}
}

func TestLoadEnvSubstitution(t *testing.T) {
	t.Setenv("ONSIGHT_TEST_SECRET", "from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  session_secret: ${ONSIGHT_TEST_SECRET}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.SessionSecret != "from-env" {
		t.Errorf("session secret = %q, want %q", cfg.Server.SessionSecret, "from-env")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
