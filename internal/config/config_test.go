package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Port)
	}
	if cfg.PingPeriod != 54*time.Second {
		t.Errorf("ping_period = %v, want 54s", cfg.PingPeriod)
	}
	if cfg.PongWait() != 60*time.Second {
		t.Errorf("pong wait = %v, want 60s", cfg.PongWait())
	}
	if cfg.RateLimit.Messages != 20 || cfg.RateLimit.Interval != 10*time.Second {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
	if cfg.Backpressure != "drop" {
		t.Errorf("backpressure = %q, want drop", cfg.Backpressure)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	body := []byte("port: 9090\nbackpressure: kick\nrate_limit:\n  messages: 3\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHAT_JOKE_URL", "http://jokes.local")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Port)
	}
	if cfg.Backpressure != "kick" {
		t.Errorf("backpressure = %q, want kick", cfg.Backpressure)
	}
	if cfg.RateLimit.Messages != 3 {
		t.Errorf("rate_limit.messages = %d, want 3", cfg.RateLimit.Messages)
	}
	if cfg.JokeURL != "http://jokes.local" {
		t.Errorf("joke_url = %q, want env override", cfg.JokeURL)
	}
}

func TestLoadFileRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.prod.yaml")
	if err := os.WriteFile(path, []byte("port: [8081\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err == nil {
		t.Fatalf("LoadFile accepted a broken file: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{Port: 80, SendBuffer: 1, ReadLimit: 1, PingPeriod: time.Second, Backpressure: "drop"}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Port = 0 }, true},
		{"port too big", func(c *Config) { c.Port = 70000 }, true},
		{"no buffer", func(c *Config) { c.SendBuffer = 0 }, true},
		{"no read limit", func(c *Config) { c.ReadLimit = 0 }, true},
		{"unknown policy", func(c *Config) { c.Backpressure = "retry" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
