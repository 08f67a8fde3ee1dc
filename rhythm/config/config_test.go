package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := DefaultAnalysisConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}

	if cfg.SampleRate != 44100 || cfg.WindowSize != 2048 || cfg.HopSize != 512 {
		t.Errorf("unexpected spectral defaults: %d/%d/%d", cfg.SampleRate, cfg.WindowSize, cfg.HopSize)
	}
	if cfg.Window != WindowHann {
		t.Errorf("default window = %q, want hann", cfg.Window)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadAnalysisConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != *DefaultAnalysisConfig() {
		t.Errorf("empty path config differs from defaults: %+v", cfg)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := []byte("threshold_delta: 1.5\nbleed_consistency_ms: 5\nwindow: hamming\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAnalysisConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ThresholdDelta != 1.5 {
		t.Errorf("ThresholdDelta = %f, want 1.5", cfg.ThresholdDelta)
	}
	if cfg.BleedConsistencyMs != 5 {
		t.Errorf("BleedConsistencyMs = %f, want 5", cfg.BleedConsistencyMs)
	}
	if cfg.Window != WindowHamming {
		t.Errorf("Window = %q, want hamming", cfg.Window)
	}

	// Untouched keys keep their defaults
	if cfg.WindowSize != 2048 || cfg.MinSignalEnergy != 0.01 {
		t.Errorf("unrelated defaults changed: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadAnalysisConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("hop_size: [not a number"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadAnalysisConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.yaml")
	if err := os.WriteFile(path, []byte("hop_size: 4096\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Hop beyond the window size fails validation, not parsing
	if _, err := LoadAnalysisConfig(path); err == nil {
		t.Error("expected validation error")
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AnalysisConfig)
	}{
		{"zero sample rate", func(c *AnalysisConfig) { c.SampleRate = 0 }},
		{"zero window size", func(c *AnalysisConfig) { c.WindowSize = 0 }},
		{"zero hop", func(c *AnalysisConfig) { c.HopSize = 0 }},
		{"hop over window", func(c *AnalysisConfig) { c.HopSize = c.WindowSize + 1 }},
		{"unknown window", func(c *AnalysisConfig) { c.Window = "blackman" }},
		{"zero gamma", func(c *AnalysisConfig) { c.LogGamma = 0 }},
		{"negative pre frames", func(c *AnalysisConfig) { c.PreAvgFrames = -1 }},
		{"zero delta", func(c *AnalysisConfig) { c.ThresholdDelta = 0 }},
		{"negative interval floor", func(c *AnalysisConfig) { c.MinIntervalFloor = -0.1 }},
		{"negative energy floor", func(c *AnalysisConfig) { c.MinSignalEnergy = -1 }},
		{"zero tolerance", func(c *AnalysisConfig) { c.MatchToleranceSec = 0 }},
		{"negative bleed threshold", func(c *AnalysisConfig) { c.BleedConsistencyMs = -1 }},
		{"bleed minimum below two", func(c *AnalysisConfig) { c.BleedMinEvents = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultAnalysisConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
