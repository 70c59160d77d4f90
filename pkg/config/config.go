// Package config holds the engine's runtime settings. Everything is
// overridable through HAVEN_* environment variables so the same binary runs
// in development, on a family gateway box, or in a multi-tenant deployment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ClassifierProvider selects the remote classifier backend.
type ClassifierProvider string

const (
	ProviderNone       ClassifierProvider = "none"       // local scorers only
	ProviderOllama     ClassifierProvider = "ollama"     // local Ollama server
	ProviderOpenRouter ClassifierProvider = "openrouter" // cloud, free tier available
	ProviderGroq       ClassifierProvider = "groq"       // cloud, fast inference
)

// Config holds global settings for the Haven engine.
type Config struct {
	// === Server ===
	ListenAddr string // HTTP listen address (default: ":8311")

	// === Rule Compilation ===
	ModelVersion   string  // pattern/lexicon version stamp for rule IDs
	BlockThreshold float64 // classifier score above this on a hard rule = BLOCK_CONTENT
	WarnThreshold  float64 // classifier score above this on a soft rule = WARN_CONTENT

	// === Classifier ===
	ClassifierProvider ClassifierProvider // remote backend, "none" disables
	ClassifierAPIKey   string
	ClassifierModel    string
	ClassifierBaseURL  string
	ClassifierTimeout  time.Duration

	// Local ONNX model for offline classification.
	HugotModelPath  string
	OnnxLibraryPath string

	// === Conversation Risk ===
	RiskMonitorThreshold    float64
	RiskAlertThreshold      float64
	RiskBlockThreshold      float64
	RiskAutoReportThreshold float64
	ArchiveAfter            time.Duration // silence window before state archival

	// === Backing Services ===
	RedisAddr   string // empty = in-memory conversation state
	PostgresDSN string // empty = log-only event sink

	// === Policy ===
	PolicyPackPath string // optional pack loaded at startup
}

// NewDefaultConfig builds the standard configuration from the environment.
func NewDefaultConfig() *Config {
	return &Config{
		ListenAddr: GetEnv("HAVEN_LISTEN_ADDR", ":8311"),

		ModelVersion:   GetEnv("HAVEN_MODEL_VERSION", "rulec-v1"),
		BlockThreshold: GetEnvFloat("HAVEN_BLOCK_THRESHOLD", 0.55),
		WarnThreshold:  GetEnvFloat("HAVEN_WARN_THRESHOLD", 0.40),

		ClassifierProvider: detectProvider(),
		ClassifierAPIKey:   GetEnv("HAVEN_CLASSIFIER_API_KEY", GetEnv("GROQ_API_KEY", os.Getenv("OPENROUTER_API_KEY"))),
		ClassifierModel:    GetEnv("HAVEN_CLASSIFIER_MODEL", ""),
		ClassifierBaseURL:  GetEnv("HAVEN_CLASSIFIER_BASE_URL", ""),
		ClassifierTimeout:  time.Duration(GetEnvInt("HAVEN_CLASSIFIER_TIMEOUT_MS", 5000)) * time.Millisecond,

		HugotModelPath:  GetEnv("HAVEN_HUGOT_MODEL_PATH", ""),
		OnnxLibraryPath: GetEnv("HAVEN_ONNX_LIBRARY_PATH", ""),

		RiskMonitorThreshold:    GetEnvFloat("HAVEN_RISK_MONITOR", 30),
		RiskAlertThreshold:      GetEnvFloat("HAVEN_RISK_ALERT", 50),
		RiskBlockThreshold:      GetEnvFloat("HAVEN_RISK_BLOCK", 75),
		RiskAutoReportThreshold: GetEnvFloat("HAVEN_RISK_AUTO_REPORT", 95),
		ArchiveAfter:            time.Duration(GetEnvInt("HAVEN_ARCHIVE_AFTER_HOURS", 720)) * time.Hour,

		RedisAddr:   GetEnv("HAVEN_REDIS_ADDR", ""),
		PostgresDSN: GetEnv("HAVEN_POSTGRES_DSN", ""),

		PolicyPackPath: GetEnv("HAVEN_POLICY_PACK", ""),
	}
}

// NewConfigFromEnv builds the configuration for the preset named in
// HAVEN_PRESET ("strict", "lenient", anything else gets the default).
func NewConfigFromEnv() *Config {
	switch strings.ToLower(GetEnv("HAVEN_PRESET", "")) {
	case "strict":
		return NewStrictConfig()
	case "lenient":
		return NewLenientConfig()
	default:
		return NewDefaultConfig()
	}
}

// NewStrictConfig lowers content thresholds for families that prefer more
// blocking over missed content.
func NewStrictConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.BlockThreshold = 0.40
	cfg.WarnThreshold = 0.25
	cfg.RiskMonitorThreshold = 20
	cfg.RiskAlertThreshold = 40
	cfg.RiskBlockThreshold = 60
	return cfg
}

// NewLenientConfig raises thresholds to minimize false positives for older
// children.
func NewLenientConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.BlockThreshold = 0.70
	cfg.WarnThreshold = 0.55
	cfg.RiskMonitorThreshold = 40
	cfg.RiskAlertThreshold = 60
	return cfg
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if !(c.RiskMonitorThreshold < c.RiskAlertThreshold &&
		c.RiskAlertThreshold < c.RiskBlockThreshold &&
		c.RiskBlockThreshold < c.RiskAutoReportThreshold) {
		return fmt.Errorf("risk thresholds out of order: %v/%v/%v/%v",
			c.RiskMonitorThreshold, c.RiskAlertThreshold, c.RiskBlockThreshold, c.RiskAutoReportThreshold)
	}
	if c.WarnThreshold > c.BlockThreshold {
		return fmt.Errorf("warn threshold %v above block threshold %v", c.WarnThreshold, c.BlockThreshold)
	}
	switch c.ClassifierProvider {
	case ProviderNone, ProviderOllama, ProviderOpenRouter, ProviderGroq:
	default:
		return fmt.Errorf("unknown classifier provider %q", c.ClassifierProvider)
	}
	return nil
}

func detectProvider() ClassifierProvider {
	if p := os.Getenv("HAVEN_CLASSIFIER_PROVIDER"); p != "" {
		return ClassifierProvider(p)
	}
	if os.Getenv("GROQ_API_KEY") != "" {
		return ProviderGroq
	}
	if os.Getenv("OPENROUTER_API_KEY") != "" || os.Getenv("HAVEN_CLASSIFIER_API_KEY") != "" {
		return ProviderOpenRouter
	}
	return ProviderNone
}

// Helper functions for environment variable parsing.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvSlice returns a comma-separated list from an environment variable or a default value.
func GetEnvSlice(key string, defaultValue []string) []string {
	if v := os.Getenv(key); v != "" {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
