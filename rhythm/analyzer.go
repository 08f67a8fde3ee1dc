package rhythm

import (
	"fmt"

	"github.com/itsvetkov1/rhythm-coach-sub001/algorithms/spectral"
	"github.com/itsvetkov1/rhythm-coach-sub001/algorithms/stats"
	"github.com/itsvetkov1/rhythm-coach-sub001/algorithms/temporal"
	"github.com/itsvetkov1/rhythm-coach-sub001/algorithms/windowing"
	"github.com/itsvetkov1/rhythm-coach-sub001/logging"
	"github.com/itsvetkov1/rhythm-coach-sub001/rhythm/config"
	"github.com/itsvetkov1/rhythm-coach-sub001/transcode"
)

// SessionParams describes one practice session to analyze
type SessionParams struct {
	BPM             int  // metronome tempo the player practiced against
	DurationSeconds int  // nominal session length for the beat grid
	LatencyOffsetMs int  // device calibration offset, subtracted from onsets
	SkipBleedCheck  bool // disable bleed detection (synthetic fixtures are machine-regular by design)
}

// Analyzer runs the onset-detection pipeline over a finished recording:
// decode, gate, novelty curve, adaptive picking, latency correction, beat
// matching, bleed check.
//
// An Analyzer is stateless across calls: each Analyze* invocation owns its
// buffers, shares nothing, and runs synchronously on the calling goroutine.
type Analyzer struct {
	cfg    *config.AnalysisConfig
	flux   *spectral.SpectralFlux
	picker *temporal.OnsetDetector
	window spectral.Window
}

// NewAnalyzer creates an analyzer for the given configuration. A nil config
// uses the defaults.
func NewAnalyzer(cfg *config.AnalysisConfig) (*Analyzer, error) {
	if cfg == nil {
		cfg = config.DefaultAnalysisConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("analyzer config: %w", err)
	}

	var window spectral.Window
	switch cfg.Window {
	case config.WindowHamming:
		window = windowing.NewHamming(cfg.WindowSize, false)
	default:
		window = windowing.NewHann(cfg.WindowSize, false)
	}

	return &Analyzer{
		cfg:  cfg,
		flux: spectral.NewSpectralFlux(),
		picker: temporal.NewOnsetDetector(
			cfg.PreAvgFrames,
			cfg.PostAvgFrames,
			cfg.ThresholdDelta,
			cfg.ThresholdEpsilon,
			cfg.MinIntervalFloor,
			cfg.MinIntervalFrac,
		),
		window: window,
	}, nil
}

// AnalyzeFile analyzes a WAV recording on disk. A missing or unreadable
// file is the one hard input failure; malformed WAV content analyzes to
// zero events instead.
func (a *Analyzer) AnalyzeFile(path string, params SessionParams) ([]TapEvent, error) {
	samples, err := transcode.DecodeWAVFile(path)
	if err != nil {
		return nil, err
	}

	return a.AnalyzeSamples(samples, params)
}

// AnalyzeBytes analyzes a WAV recording already in memory
func (a *Analyzer) AnalyzeBytes(data []byte, params SessionParams) ([]TapEvent, error) {
	return a.AnalyzeSamples(transcode.DecodeWAVBytes(data), params)
}

// AnalyzeSamples runs the pipeline over decoded, normalized mono samples.
//
// Expected no-signal conditions (empty buffer, too-quiet recording, buffer
// shorter than one analysis window) return an empty event list and a nil
// error; callers message those as "nothing detected." A *BleedError is the
// one distinguished failure. Anything else is a defect and propagates.
func (a *Analyzer) AnalyzeSamples(samples []float64, params SessionParams) ([]TapEvent, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "rhythm_analyzer",
		"bpm":       params.BPM,
		"duration":  params.DurationSeconds,
		"samples":   len(samples),
	})

	if len(samples) == 0 {
		logger.Debug("No samples to analyze")
		return []TapEvent{}, nil
	}

	rms := temporal.RMS(samples)
	if rms < a.cfg.MinSignalEnergy {
		// The envelope peak tells a quiet-but-tapping session apart from
		// true silence when reading the logs.
		envelopePeak := temporal.PeakAmplitude(
			temporal.ShortTimeRMS(samples, a.cfg.WindowSize, a.cfg.HopSize))
		logger.Info("Recording below signal-energy floor, skipping analysis", logging.Fields{
			"rms":           rms,
			"floor":         a.cfg.MinSignalEnergy,
			"envelope_peak": envelopePeak,
		})
		return []TapEvent{}, nil
	}

	novelty, err := a.flux.ComputeNovelty(
		samples,
		a.cfg.WindowSize,
		a.cfg.HopSize,
		a.cfg.SampleRate,
		a.cfg.LogGamma,
		a.window,
	)
	if err != nil {
		return nil, fmt.Errorf("computing novelty curve: %w", err)
	}

	onsets := a.picker.Pick(novelty.Flux, novelty.FrameTime, float64(params.BPM))

	// Flux fires while a hit is still entering the analysis window, which
	// stamps the onset up to a window length early. Restamp against the
	// energy envelope so timing errors measure the hit, not the window.
	onsets = temporal.RefineOnsets(samples, onsets, a.cfg.SampleRate,
		a.cfg.HopSize, a.cfg.WindowSize+a.cfg.HopSize)

	logger.Debug("Onset picking completed", logging.Fields{
		"rms":          rms,
		"flux_frames":  len(novelty.Flux),
		"onsets_found": len(onsets),
	})

	corrected := CorrectLatency(onsets, float64(params.LatencyOffsetMs))

	expectedBeats := ExpectedBeats(float64(params.BPM), float64(params.DurationSeconds))
	events := MatchToGrid(corrected, expectedBeats, a.cfg.MatchToleranceSec)

	if !params.SkipBleedCheck {
		if bleed := a.detectBleed(events); bleed != nil {
			logger.Warn("Machine-regular timing detected", logging.Fields{
				"consistency_ms": bleed.ConsistencyMs,
				"events":         bleed.Events,
			})
			return nil, bleed
		}
	}

	logger.Debug("Analysis completed", logging.Fields{
		"expected_beats": len(expectedBeats),
		"matched_events": len(events),
	})

	return events, nil
}

// detectBleed flags machine-regular timing. Lists below the configured
// event minimum carry no consistency information and never flag: the
// stddev of one or two errors says nothing about a session.
func (a *Analyzer) detectBleed(events []TapEvent) *BleedError {
	if len(events) < a.cfg.BleedMinEvents {
		return nil
	}

	consistency := stats.Consistency(errorsOf(events))
	if consistency < a.cfg.BleedConsistencyMs {
		return &BleedError{ConsistencyMs: consistency, Events: len(events)}
	}
	return nil
}

// Config returns the analyzer's configuration
func (a *Analyzer) Config() *config.AnalysisConfig {
	return a.cfg
}
