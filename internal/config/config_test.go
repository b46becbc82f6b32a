package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_PATH", "PUSH_INTERVAL", "MAX_HISTORY", "TOP_K", "GEMINI_API_KEY", "OTEL_ENABLED", "ENABLE_LLM"} {
		t.Setenv(key, "")
	}
	t.Setenv("PORT", "8000")
	t.Setenv("DB_PATH", "./data/coach.db")
	t.Setenv("PUSH_INTERVAL", "1s")
	t.Setenv("MAX_HISTORY", "50")
	t.Setenv("TOP_K", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8000" || cfg.DBPath != "./data/coach.db" {
		t.Fatalf("unexpected base config %+v", cfg)
	}
	if cfg.Session.PushInterval != time.Second || cfg.Session.MaxHistory != 50 || cfg.Session.TopK != 5 {
		t.Fatalf("unexpected session config %+v", cfg.Session)
	}
	if cfg.Collab.EnableLLM {
		t.Fatal("expected LLM disabled for empty ENABLE_LLM")
	}
	if !cfg.ArchiveEnabled() {
		t.Fatal("expected archive enabled")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("PUSH_INTERVAL", "250ms")
	t.Setenv("SESSION_IDLE_TTL", "90")
	t.Setenv("RANK_TABLE_CAPACITY", "0")
	t.Setenv("ENABLE_LLM", "1")
	t.Setenv("MODEL_SIDECAR_ADDR", " localhost:50051 ")
	t.Setenv("DB_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" {
		t.Fatalf("expected port 9000, got %q", cfg.Port)
	}
	if cfg.Session.PushInterval != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v", cfg.Session.PushInterval)
	}
	if cfg.Retention.SessionIdleTTL != 90*time.Second {
		t.Fatalf("expected bare seconds to parse, got %v", cfg.Retention.SessionIdleTTL)
	}
	if cfg.Session.RankTableCapacity != 0 {
		t.Fatalf("expected unbounded rank table, got %d", cfg.Session.RankTableCapacity)
	}
	if !cfg.Collab.EnableLLM || cfg.Collab.SidecarAddr != "localhost:50051" {
		t.Fatalf("unexpected collab config %+v", cfg.Collab)
	}
	if cfg.ArchiveEnabled() {
		t.Fatal("expected archive disabled for empty DB_PATH")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port: "8000",
			Session: SessionConfig{
				PushInterval:        time.Second,
				MaxHistory:          50,
				TopK:                5,
				MaxFrameBytes:       1 << 20,
				ObserverSendTimeout: time.Second,
			},
			Retention: RetentionConfig{SweepInterval: time.Minute},
			Collab:    CollabConfig{Timeout: time.Second},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty port", mutate: func(c *Config) { c.Port = "" }, want: "PORT"},
		{name: "zero push interval", mutate: func(c *Config) { c.Session.PushInterval = 0 }, want: "PUSH_INTERVAL"},
		{name: "zero history", mutate: func(c *Config) { c.Session.MaxHistory = 0 }, want: "MAX_HISTORY"},
		{name: "negative capacity", mutate: func(c *Config) { c.Session.RankTableCapacity = -1 }, want: "RANK_TABLE_CAPACITY"},
		{name: "otel without endpoint", mutate: func(c *Config) { c.Telemetry.Enabled = true }, want: "OTEL_ENDPOINT"},
		{name: "gemini without model", mutate: func(c *Config) { c.Collab.GeminiAPIKey = "k" }, want: "GEMINI_MODEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	t.Parallel()

	for url, want := range map[string]bool{
		"":                      true,
		"http://localhost:5173": true,
		"https://coach.example": false,
	} {
		if got := (&Config{FrontendURL: url}).IsDevelopment(); got != want {
			t.Fatalf("%q: got %v, want %v", url, got, want)
		}
	}
}
