// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	// DBPath is the call archive location; empty disables the archive.
	DBPath    string
	Session   SessionConfig
	Retention RetentionConfig
	Collab    CollabConfig
	Telemetry TelemetryConfig
}

// SessionConfig sizes per-session state and the observer push loop.
type SessionConfig struct {
	PushInterval        time.Duration
	MaxHistory          int
	TopK                int
	RankTableCapacity   int
	MaxFrameBytes       int64
	ObserverSendTimeout time.Duration
}

// RetentionConfig controls the background sweeper.
type RetentionConfig struct {
	SessionIdleTTL  time.Duration
	SweepInterval   time.Duration
	RecordRetention time.Duration
}

// CollabConfig selects the model collaborators.
type CollabConfig struct {
	Timeout          time.Duration
	SidecarAddr      string
	GeminiAPIKey     string
	GeminiModel      string
	GeminiEmbedModel string
	EnableLLM        bool
}

// TelemetryConfig controls OTLP metric export.
type TelemetryConfig struct {
	Enabled  bool
	Endpoint string
	Insecure bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/coach.db"),
		Session: SessionConfig{
			PushInterval:        getEnvDuration("PUSH_INTERVAL", time.Second),
			MaxHistory:          getEnvInt("MAX_HISTORY", 50),
			TopK:                getEnvInt("TOP_K", 5),
			RankTableCapacity:   getEnvInt("RANK_TABLE_CAPACITY", 1000),
			MaxFrameBytes:       int64(getEnvInt("MAX_FRAME_BYTES", 1<<20)),
			ObserverSendTimeout: getEnvDuration("OBSERVER_SEND_TIMEOUT", 2*time.Second),
		},
		Retention: RetentionConfig{
			SessionIdleTTL:  getEnvDuration("SESSION_IDLE_TTL", 60*time.Minute),
			SweepInterval:   getEnvDuration("SWEEP_INTERVAL", 5*time.Minute),
			RecordRetention: getEnvDuration("RECORD_RETENTION", 720*time.Hour),
		},
		Collab: CollabConfig{
			Timeout:          getEnvDuration("COLLAB_TIMEOUT", 3*time.Second),
			SidecarAddr:      strings.TrimSpace(getEnv("MODEL_SIDECAR_ADDR", "")),
			GeminiAPIKey:     strings.TrimSpace(getEnv("GEMINI_API_KEY", "")),
			GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			GeminiEmbedModel: getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
			EnableLLM:        getEnvBool("ENABLE_LLM", false),
		},
		Telemetry: TelemetryConfig{
			Enabled:  getEnvBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_ENDPOINT", ""),
			Insecure: getEnvBool("OTEL_INSECURE", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Session.PushInterval <= 0 {
		return fmt.Errorf("PUSH_INTERVAL must be > 0")
	}
	if c.Session.MaxHistory <= 0 {
		return fmt.Errorf("MAX_HISTORY must be > 0")
	}
	if c.Session.TopK <= 0 {
		return fmt.Errorf("TOP_K must be > 0")
	}
	if c.Session.RankTableCapacity < 0 {
		return fmt.Errorf("RANK_TABLE_CAPACITY must be >= 0")
	}
	if c.Session.MaxFrameBytes <= 0 {
		return fmt.Errorf("MAX_FRAME_BYTES must be > 0")
	}
	if c.Session.ObserverSendTimeout <= 0 {
		return fmt.Errorf("OBSERVER_SEND_TIMEOUT must be > 0")
	}
	if c.Retention.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be > 0")
	}
	if c.Collab.Timeout <= 0 {
		return fmt.Errorf("COLLAB_TIMEOUT must be > 0")
	}
	if c.Collab.GeminiAPIKey != "" && (c.Collab.GeminiModel == "" || c.Collab.GeminiEmbedModel == "") {
		return fmt.Errorf("GEMINI_MODEL and GEMINI_EMBED_MODEL cannot be empty when GEMINI_API_KEY is set")
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("OTEL_ENDPOINT cannot be empty when OTEL_ENABLED is set")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// ArchiveEnabled reports whether call records are persisted.
func (c *Config) ArchiveEnabled() bool {
	return c.DBPath != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}
