package rhythm

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/itsvetkov1/rhythm-coach-sub001/rhythm/config"
)

// synthClickTrack renders a mono metronome-style recording: short sine
// bursts on the beat grid, silence between them.
func synthClickTrack(bpm, durationSec int, amplitude, offsetSec float64) []float64 {
	const (
		sampleRate = 44100
		clickFreq  = 1000.0
		clickLen   = sampleRate / 20 // 50ms
	)

	samples := make([]float64, durationSec*sampleRate)
	beatPeriod := 60.0 / float64(bpm)

	for beat := 0; ; beat++ {
		start := int((float64(beat)*beatPeriod + offsetSec) * sampleRate)
		if start >= len(samples) {
			break
		}
		for i := 0; i < clickLen && start+i < len(samples); i++ {
			samples[start+i] = amplitude * math.Sin(2*math.Pi*clickFreq*float64(i)/sampleRate)
		}
	}
	return samples
}

// wavFromSamples encodes samples as a minimal PCM16 mono WAV byte stream.
func wavFromSamples(samples []float64) []byte {
	dataSize := 2 * len(samples)
	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], 44100)
	binary.LittleEndian.PutUint32(buf[28:32], 44100*2)
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[44+2*i:], uint16(int16(s*32767)))
	}
	return buf
}

func newDefaultAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	analyzer, err := NewAnalyzer(nil)
	if err != nil {
		t.Fatal(err)
	}
	return analyzer
}

func TestNewAnalyzerRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultAnalysisConfig()
	cfg.HopSize = 0

	if _, err := NewAnalyzer(cfg); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestAnalyzeSilence(t *testing.T) {
	analyzer := newDefaultAnalyzer(t)

	events, err := analyzer.AnalyzeSamples(make([]float64, 44100), SessionParams{BPM: 60, DurationSeconds: 1})
	if err != nil {
		t.Fatal(err)
	}
	if events == nil || len(events) != 0 {
		t.Errorf("silence produced %d events, want empty non-nil slice", len(events))
	}
}

func TestAnalyzeEmptyBuffer(t *testing.T) {
	analyzer := newDefaultAnalyzer(t)

	events, err := analyzer.AnalyzeSamples(nil, SessionParams{BPM: 60, DurationSeconds: 1})
	if err != nil {
		t.Fatal(err)
	}
	if events == nil || len(events) != 0 {
		t.Errorf("empty buffer produced %d events, want empty non-nil slice", len(events))
	}
}

func TestAnalyzeQuietRecordingIsGated(t *testing.T) {
	analyzer := newDefaultAnalyzer(t)

	// Clicks well under the signal-energy floor
	samples := synthClickTrack(60, 2, 0.001, 0)
	events, err := analyzer.AnalyzeSamples(samples, SessionParams{BPM: 60, DurationSeconds: 2, SkipBleedCheck: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("near-silent recording produced %d events, want 0", len(events))
	}
}

func TestAnalyzeGateMonotonicity(t *testing.T) {
	// Once a recording clears the energy gate, scaling it louder must
	// never turn a non-empty result empty: flux grows with input scale
	// (sub-linearly under log compression, but monotonically).
	analyzer := newDefaultAnalyzer(t)

	for _, amplitude := range []float64{0.4, 0.9} {
		samples := synthClickTrack(60, 5, amplitude, 0)
		events, err := analyzer.AnalyzeSamples(samples, SessionParams{
			BPM:             60,
			DurationSeconds: 5,
			SkipBleedCheck:  true,
		})
		if err != nil {
			t.Fatalf("amplitude %.1f: %v", amplitude, err)
		}
		if len(events) == 0 {
			t.Errorf("amplitude %.1f produced no events, want a non-empty result", amplitude)
		}
	}
}

func TestAnalyzeShortLoudInput(t *testing.T) {
	analyzer := newDefaultAnalyzer(t)

	// Loud but shorter than one analysis window
	samples := make([]float64, 1024)
	for i := range samples {
		samples[i] = 0.8 * math.Sin(2*math.Pi*1000*float64(i)/44100)
	}

	events, err := analyzer.AnalyzeSamples(samples, SessionParams{BPM: 60, DurationSeconds: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("sub-window input produced %d events, want 0", len(events))
	}
}

func TestAnalyzeClickTrackRoundTrip(t *testing.T) {
	analyzer := newDefaultAnalyzer(t)

	samples := synthClickTrack(60, 5, 0.76, 0)
	events, err := analyzer.AnalyzeBytes(wavFromSamples(samples), SessionParams{
		BPM:             60,
		DurationSeconds: 5,
		SkipBleedCheck:  true,
	})
	if err != nil {
		t.Fatal(err)
	}

	// The beat at t=0 has no preceding silence and may be missed; the rest
	// must be found close to the grid.
	if len(events) < 4 {
		t.Fatalf("detected %d of 5 beats, want at least 4", len(events))
	}
	for _, ev := range events {
		if math.Abs(ev.ErrorMs) > 100 {
			t.Errorf("beat at %fs matched with %fms error, want under 100ms", ev.ExpectedTime, ev.ErrorMs)
		}
	}
}

func TestAnalyzeLatencyCorrection(t *testing.T) {
	analyzer := newDefaultAnalyzer(t)

	// Every click lands 100ms after its beat, like a fixed output delay
	samples := synthClickTrack(60, 5, 0.76, 0.1)

	run := func(latencyMs int) float64 {
		t.Helper()
		events, err := analyzer.AnalyzeSamples(samples, SessionParams{
			BPM:             60,
			DurationSeconds: 5,
			LatencyOffsetMs: latencyMs,
			SkipBleedCheck:  true,
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(events) < 4 {
			t.Fatalf("detected %d beats, want at least 4", len(events))
		}
		return Summarize(events, 5).MeanSignedMs
	}

	uncorrected := run(0)
	if math.Abs(uncorrected-100) > 20 {
		t.Errorf("uncorrected bias = %fms, want near +100ms", uncorrected)
	}

	corrected := run(100)
	if math.Abs(corrected) > 20 {
		t.Errorf("bias after 100ms correction = %fms, want near 0", corrected)
	}
}

func TestAnalyzeBleedDetection(t *testing.T) {
	// Onset times snap to the analysis frame grid (~11.6ms), so a perfectly
	// regular track can still show a few ms of measured jitter. A raised
	// consistency threshold makes machine regularity unambiguous here.
	cfg := config.DefaultAnalysisConfig()
	cfg.BleedConsistencyMs = 50

	analyzer, err := NewAnalyzer(cfg)
	if err != nil {
		t.Fatal(err)
	}

	samples := synthClickTrack(60, 5, 0.76, 0)
	params := SessionParams{BPM: 60, DurationSeconds: 5}

	_, err = analyzer.AnalyzeSamples(samples, params)
	var bleed *BleedError
	if !errors.As(err, &bleed) {
		t.Fatalf("expected BleedError for machine-regular track, got %v", err)
	}
	if bleed.ConsistencyMs >= cfg.BleedConsistencyMs {
		t.Errorf("BleedError consistency %fms not under threshold %fms", bleed.ConsistencyMs, cfg.BleedConsistencyMs)
	}
	if bleed.Events < cfg.BleedMinEvents {
		t.Errorf("BleedError reports %d events, under minimum %d", bleed.Events, cfg.BleedMinEvents)
	}

	params.SkipBleedCheck = true
	events, err := analyzer.AnalyzeSamples(samples, params)
	if err != nil {
		t.Fatalf("bleed check disabled but analysis failed: %v", err)
	}
	if len(events) < 4 {
		t.Errorf("detected %d beats with bleed check disabled, want at least 4", len(events))
	}
}

func TestDetectBleedThreshold(t *testing.T) {
	analyzer := newDefaultAnalyzer(t)

	tests := []struct {
		name string
		errs []float64
		want bool
	}{
		{"machine regular", []float64{100, 101, 100, 101, 100}, true},
		{"identical errors", []float64{50, 50, 50, 50}, true},
		{"human jitter", []float64{-20, 35, 5, -40, 15}, false},
		{"two events only", []float64{10, 10}, false},
		{"no events", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := analyzer.detectBleed(eventsWithErrors(tt.errs...))
			if (got != nil) != tt.want {
				t.Errorf("detectBleed = %v, want flagged=%v", got, tt.want)
			}
		})
	}
}

func TestAnalyzeMalformedBytes(t *testing.T) {
	analyzer := newDefaultAnalyzer(t)

	events, err := analyzer.AnalyzeBytes([]byte("definitely not a wav file"), SessionParams{BPM: 60, DurationSeconds: 1})
	if err != nil {
		t.Fatal(err)
	}
	if events == nil || len(events) != 0 {
		t.Errorf("malformed bytes produced %d events, want empty non-nil slice", len(events))
	}
}

func TestAnalyzeFileMissing(t *testing.T) {
	analyzer := newDefaultAnalyzer(t)

	_, err := analyzer.AnalyzeFile(filepath.Join(t.TempDir(), "nope.wav"), SessionParams{BPM: 60, DurationSeconds: 1})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestAnalyzeFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.wav")
	if err := os.WriteFile(path, wavFromSamples(synthClickTrack(120, 3, 0.76, 0)), 0o644); err != nil {
		t.Fatal(err)
	}

	analyzer := newDefaultAnalyzer(t)
	events, err := analyzer.AnalyzeFile(path, SessionParams{
		BPM:             120,
		DurationSeconds: 3,
		SkipBleedCheck:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) < 5 { // 6 beats at 120 BPM over 3s, first may be missed
		t.Errorf("detected %d of 6 beats, want at least 5", len(events))
	}
}
