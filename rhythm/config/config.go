package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WindowType selects the STFT window function
type WindowType string

const (
	WindowHann    WindowType = "hann"
	WindowHamming WindowType = "hamming"
)

// AnalysisConfig holds every tunable of the onset-detection pipeline.
//
// All knobs live here rather than as package constants because the useful
// values are device- and environment-sensitive: the signal-energy floor and
// the picker sensitivity in particular are recalibration targets. A config
// value is constructed once per analysis call and threaded through every
// stage unmodified, so each stage stays a pure function of (config, input).
type AnalysisConfig struct {
	// Spectral analysis
	SampleRate int        `json:"sample_rate" yaml:"sample_rate"` // Hz, fixed 44100 for the capture path
	WindowSize int        `json:"window_size" yaml:"window_size"` // FFT size in samples
	HopSize    int        `json:"hop_size" yaml:"hop_size"`       // advance between frames in samples
	Window     WindowType `json:"window" yaml:"window"`           // window function name

	// Novelty curve
	LogGamma float64 `json:"log_gamma" yaml:"log_gamma"` // magnitude compression ln(1 + gamma*|z|)

	// Adaptive onset picker
	PreAvgFrames     int     `json:"pre_avg_frames" yaml:"pre_avg_frames"`         // local-average frames before candidate (~100ms)
	PostAvgFrames    int     `json:"post_avg_frames" yaml:"post_avg_frames"`       // local-average frames after candidate (~30ms)
	ThresholdDelta   float64 `json:"threshold_delta" yaml:"threshold_delta"`       // sensitivity multiplier on the local average
	ThresholdEpsilon float64 `json:"threshold_epsilon" yaml:"threshold_epsilon"`   // floor against pure-noise triggering
	MinIntervalFloor float64 `json:"min_interval_floor" yaml:"min_interval_floor"` // seconds, absolute onset spacing floor
	MinIntervalFrac  float64 `json:"min_interval_frac" yaml:"min_interval_frac"`   // fraction of beat period used as spacing

	// Signal gate
	MinSignalEnergy float64 `json:"min_signal_energy" yaml:"min_signal_energy"` // whole-buffer RMS below this aborts analysis

	// Beat matching
	MatchToleranceSec float64 `json:"match_tolerance_sec" yaml:"match_tolerance_sec"` // max |onset-beat| for a match

	// Metronome bleed detection
	BleedConsistencyMs float64 `json:"bleed_consistency_ms" yaml:"bleed_consistency_ms"` // stddev below this flags bleed
	BleedMinEvents     int     `json:"bleed_min_events" yaml:"bleed_min_events"`         // minimum matched events before the check applies
}

// DefaultAnalysisConfig returns the tuned defaults for 44.1 kHz mono
// practice recordings
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		SampleRate: 44100,
		WindowSize: 2048,
		HopSize:    512, // 75% overlap
		Window:     WindowHann,

		LogGamma: 10.0,

		PreAvgFrames:     10, // ~100ms at 512-sample hop
		PostAvgFrames:    3,  // ~30ms
		ThresholdDelta:   2.0,
		ThresholdEpsilon: 0.01,
		MinIntervalFloor: 0.05,
		MinIntervalFrac:  0.4,

		MinSignalEnergy: 0.01,

		MatchToleranceSec: 0.3,

		BleedConsistencyMs: 3.0,
		BleedMinEvents:     3,
	}
}

// LoadAnalysisConfig loads tuning overrides from a YAML file on top of the
// defaults. An empty path returns the defaults unchanged. The loaded config
// is validated before being returned.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cfg := DefaultAnalysisConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent
func (c *AnalysisConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive: %d", c.SampleRate)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive: %d", c.WindowSize)
	}
	if c.HopSize <= 0 || c.HopSize > c.WindowSize {
		return fmt.Errorf("hop size must be in (0, window size]: %d", c.HopSize)
	}
	if c.Window != WindowHann && c.Window != WindowHamming {
		return fmt.Errorf("unsupported window type: %q", c.Window)
	}
	if c.LogGamma <= 0 {
		return fmt.Errorf("log gamma must be positive: %f", c.LogGamma)
	}
	if c.PreAvgFrames < 0 || c.PostAvgFrames < 0 {
		return fmt.Errorf("average frame counts must be non-negative: %d/%d", c.PreAvgFrames, c.PostAvgFrames)
	}
	if c.ThresholdDelta <= 0 {
		return fmt.Errorf("threshold delta must be positive: %f", c.ThresholdDelta)
	}
	if c.MinIntervalFloor < 0 || c.MinIntervalFrac < 0 {
		return fmt.Errorf("minimum interval parameters must be non-negative: %f/%f", c.MinIntervalFloor, c.MinIntervalFrac)
	}
	if c.MinSignalEnergy < 0 {
		return fmt.Errorf("minimum signal energy must be non-negative: %f", c.MinSignalEnergy)
	}
	if c.MatchToleranceSec <= 0 {
		return fmt.Errorf("match tolerance must be positive: %f", c.MatchToleranceSec)
	}
	if c.BleedConsistencyMs < 0 {
		return fmt.Errorf("bleed consistency threshold must be non-negative: %f", c.BleedConsistencyMs)
	}
	if c.BleedMinEvents < 2 {
		return fmt.Errorf("bleed minimum events must be at least 2: %d", c.BleedMinEvents)
	}
	return nil
}
