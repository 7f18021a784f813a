package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "tickd.yaml")
	writeFile(t, path, `
logging:
  level: DEBUG
  console: true
scheduler:
  enabled: true
  tick_period: 10s
storage:
  driver: sqlite
  path: ./tickd.db
jobs:
  - name: heartbeat
    command: ["true"]
    repeat: true
    interval_minutes: 1
`)

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "DEBUG" || !cfg.Logging.Console {
		t.Fatalf("logging not parsed: %+v", cfg.Logging)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.TickPeriod != "10s" {
		t.Fatalf("scheduler not parsed: %+v", cfg.Scheduler)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("storage not parsed: %+v", cfg.Storage)
	}
	if len(cfg.Jobs) != 1 || cfg.Jobs[0].Name != "heartbeat" || !cfg.Jobs[0].Repeat {
		t.Fatalf("jobs not parsed: %+v", cfg.Jobs)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "tickd.json")
	writeFile(t, path, `{"scheduler": {"enabled": true, "workers": 4}}`)

	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	base := func() *Config {
		return &Config{
			Scheduler: SchedulerConfig{Enabled: true, TickPeriod: "30s"},
			Jobs: []JobConfig{
				{Name: "a", Command: []string{"true"}, Repeat: true, IntervalMinutes: 5},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad tick period", mutate: func(c *Config) { c.Scheduler.TickPeriod = "soon" }, wantErr: true},
		{name: "missing job name", mutate: func(c *Config) { c.Jobs[0].Name = " " }, wantErr: true},
		{name: "duplicate job name", mutate: func(c *Config) { c.Jobs = append(c.Jobs, c.Jobs[0]) }, wantErr: true},
		{name: "missing command", mutate: func(c *Config) { c.Jobs[0].Command = nil }, wantErr: true},
		{name: "negative interval", mutate: func(c *Config) { c.Jobs[0].IntervalMinutes = -1 }, wantErr: true},
		{name: "bad start_at", mutate: func(c *Config) { c.Jobs[0].StartAt = "tomorrow" }, wantErr: true},
		{name: "good start_at", mutate: func(c *Config) { c.Jobs[0].StartAt = "2026-09-01T00:00:00Z" }},
		{name: "bad timeout", mutate: func(c *Config) { c.Jobs[0].Timeout = "fast" }, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("x", "", 30*time.Second)
	if err != nil || d != 30*time.Second {
		t.Fatalf("empty: d=%v err=%v", d, err)
	}
	d, err = ParseDurationOrDefault("x", "2m", time.Second)
	if err != nil || d != 2*time.Minute {
		t.Fatalf("2m: d=%v err=%v", d, err)
	}
	if _, err := ParseDurationOrDefault("x", "-5s", time.Second); err == nil {
		t.Fatal("negative duration accepted")
	}
}
