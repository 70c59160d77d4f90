package config

import (
	"testing"
	"time"
)

func TestPresetsValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  *Config
	}{
		{"default", NewDefaultConfig()},
		{"strict", NewStrictConfig()},
		{"lenient", NewLenientConfig()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err != nil {
				t.Errorf("%s preset invalid: %v", tc.name, err)
			}
		})
	}
}

func TestValidateRejectsDisorderedThresholds(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.RiskAlertThreshold = cfg.RiskBlockThreshold + 1
	if err := cfg.Validate(); err == nil {
		t.Error("disordered risk thresholds passed validation")
	}

	cfg = NewDefaultConfig()
	cfg.WarnThreshold = cfg.BlockThreshold + 0.1
	if err := cfg.Validate(); err == nil {
		t.Error("warn above block passed validation")
	}

	cfg = NewDefaultConfig()
	cfg.ClassifierProvider = "mystery"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown provider passed validation")
	}
}

func TestNewConfigFromEnvSelectsPreset(t *testing.T) {
	t.Setenv("HAVEN_PRESET", "strict")
	if got := NewConfigFromEnv().BlockThreshold; got != NewStrictConfig().BlockThreshold {
		t.Errorf("strict preset BlockThreshold = %v", got)
	}

	t.Setenv("HAVEN_PRESET", "Lenient")
	if got := NewConfigFromEnv().BlockThreshold; got != NewLenientConfig().BlockThreshold {
		t.Errorf("lenient preset BlockThreshold = %v", got)
	}

	t.Setenv("HAVEN_PRESET", "")
	if got := NewConfigFromEnv().BlockThreshold; got != NewDefaultConfig().BlockThreshold {
		t.Errorf("default preset BlockThreshold = %v", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HAVEN_LISTEN_ADDR", ":9000")
	t.Setenv("HAVEN_BLOCK_THRESHOLD", "0.6")
	t.Setenv("HAVEN_CLASSIFIER_TIMEOUT_MS", "2500")
	t.Setenv("HAVEN_CLASSIFIER_PROVIDER", "groq")

	cfg := NewDefaultConfig()
	if cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.BlockThreshold != 0.6 {
		t.Errorf("BlockThreshold = %v", cfg.BlockThreshold)
	}
	if cfg.ClassifierTimeout != 2500*time.Millisecond {
		t.Errorf("ClassifierTimeout = %v", cfg.ClassifierTimeout)
	}
	if cfg.ClassifierProvider != ProviderGroq {
		t.Errorf("ClassifierProvider = %q", cfg.ClassifierProvider)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("HAVEN_TEST_BOOL", "true")
	t.Setenv("HAVEN_TEST_INT", "not a number")
	t.Setenv("HAVEN_TEST_SLICE", "a, b , ,c")

	if !GetEnvBool("HAVEN_TEST_BOOL", false) {
		t.Error("GetEnvBool ignored set value")
	}
	if got := GetEnvInt("HAVEN_TEST_INT", 7); got != 7 {
		t.Errorf("GetEnvInt on garbage = %d, want default 7", got)
	}
	if got := GetEnvSlice("HAVEN_TEST_SLICE", nil); len(got) != 3 || got[2] != "c" {
		t.Errorf("GetEnvSlice = %v", got)
	}
	if got := GetEnv("HAVEN_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("GetEnv = %q", got)
	}
}
