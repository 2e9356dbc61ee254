// Package config loads application configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig
	Roster  RosterConfig
	OpenAI  OpenAIConfig
	Summary SummaryConfig
	Kafka   KafkaConfig
	Tracing TracingConfig
}

type ServerConfig struct {
	Port string
}

type RosterConfig struct {
	// Path to the CSV snapshot loaded at startup.
	Path string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type SummaryConfig struct {
	Timeout   time.Duration
	MaxTokens int
}

// KafkaConfig configures the optional alert publisher. Enabled only when
// brokers are set.
type KafkaConfig struct {
	Brokers      []string
	ScanInterval time.Duration
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// TracingConfig configures the optional OTLP exporter. Enabled only when an
// endpoint is set.
type TracingConfig struct {
	OTLPEndpoint string
	Environment  string
}

func (t TracingConfig) Enabled() bool { return t.OTLPEndpoint != "" }

// Load reads configuration from environment variables with development
// defaults.
func Load() Config {
	return Config{
		Server: ServerConfig{
			Port: envString("PORT", "8080"),
		},
		Roster: RosterConfig{
			Path: envString("ROSTER_PATH", "data/roster.csv"),
		},
		OpenAI: OpenAIConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  envString("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Summary: SummaryConfig{
			Timeout:   envDuration("SUMMARY_TIMEOUT_SECONDS", 30*time.Second),
			MaxTokens: envInt("SUMMARY_MAX_TOKENS", 500),
		},
		Kafka: KafkaConfig{
			Brokers:      envList("KAFKA_BROKERS"),
			ScanInterval: envDuration("ALERT_SCAN_INTERVAL_SECONDS", 5*time.Minute),
		},
		Tracing: TracingConfig{
			OTLPEndpoint: os.Getenv("OTLP_ENDPOINT"),
			Environment:  envString("ENVIRONMENT", "development"),
		},
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
