package main

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"

	"github.com/itsvetkov1/rhythm-coach-sub001/logging"
	"github.com/itsvetkov1/rhythm-coach-sub001/rhythm"
	"github.com/itsvetkov1/rhythm-coach-sub001/rhythm/config"
	"github.com/itsvetkov1/rhythm-coach-sub001/transcode"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		bpm        int
		duration   int
		latencyMs  int
		noBleed    bool
		configPath string
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:           "rhythm-analyze [recording.wav]",
		Short:         "Score a metronome practice recording against its beat grid",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logging.SetLevel(logging.DebugLevel)
			}

			cfg, err := config.LoadAnalysisConfig(configPath)
			if err != nil {
				return err
			}

			analyzer, err := rhythm.NewAnalyzer(cfg)
			if err != nil {
				return err
			}

			samples, err := transcode.DecodeWAVFile(args[0])
			if err != nil {
				return err
			}

			if duration <= 0 {
				duration = int(math.Ceil(float64(len(samples)) / float64(cfg.SampleRate)))
			}

			events, err := analyzer.AnalyzeSamples(samples, rhythm.SessionParams{
				BPM:             bpm,
				DurationSeconds: duration,
				LatencyOffsetMs: latencyMs,
				SkipBleedCheck:  noBleed,
			})

			var bleed *rhythm.BleedError
			if errors.As(err, &bleed) {
				fmt.Printf("Metronome bleed detected (%.2fms consistency over %d taps).\n", bleed.ConsistencyMs, bleed.Events)
				fmt.Println("The microphone is picking up the click track. Record again with headphones.")
				os.Exit(2)
			}
			if err != nil {
				return err
			}

			if len(events) == 0 {
				fmt.Println("No beats detected. Tap louder, or check the microphone.")
				return nil
			}

			printResults(events, bpm, duration)
			return nil
		},
	}

	rootCmd.Flags().IntVarP(&bpm, "bpm", "b", 60, "Metronome tempo of the session (beats per minute)")
	rootCmd.Flags().IntVarP(&duration, "duration", "d", 0, "Session length in seconds (default: recording length)")
	rootCmd.Flags().IntVarP(&latencyMs, "latency", "l", 0, "Device latency offset in milliseconds, from calibration")
	rootCmd.Flags().BoolVar(&noBleed, "no-bleed-check", false, "Disable metronome bleed detection")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML file with analysis tuning overrides")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show per-stage debug output")

	rootCmd.AddCommand(newGenCmd())
	rootCmd.AddCommand(newCalibrateCmd())

	return rootCmd
}

func printResults(events []rhythm.TapEvent, bpm, duration int) {
	fmt.Printf("%-8s %-12s %-12s %s\n", "beat", "expected", "actual", "error")
	for i, ev := range events {
		fmt.Printf("%-8d %-12.3f %-12.3f %+.1fms\n", i+1, ev.ExpectedTime, ev.ActualTime, ev.ErrorMs)
	}

	grid := rhythm.ExpectedBeats(float64(bpm), float64(duration))
	summary := rhythm.Summarize(events, len(grid))

	fmt.Println()
	fmt.Printf("Matched %d/%d beats (%d missed)\n", summary.MatchedBeats, summary.ExpectedBeats, summary.MissedBeats)
	fmt.Printf("Average error:   %.1fms\n", summary.AverageErrorMs)
	fmt.Printf("Timing bias:     %+.1fms (negative = early)\n", summary.MeanSignedMs)
	fmt.Printf("Consistency:     %.1fms\n", summary.ConsistencyMs)
	fmt.Printf("Early/on/late:   %d / %d / %d (on time = within %.0fms)\n",
		summary.EarlyCount, summary.OnTimeCount, summary.LateCount, rhythm.OnTimeWindowMs)
}

// newCalibrateCmd analyzes a calibration recording and prints the latency
// offset to persist for this device
func newCalibrateCmd() *cobra.Command {
	var (
		bpm      int
		duration int
	)

	cmd := &cobra.Command{
		Use:           "calibrate [recording.wav]",
		Short:         "Derive the device latency offset from a calibration recording",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer, err := rhythm.NewAnalyzer(nil)
			if err != nil {
				return err
			}

			// Calibration plays the click out loud on purpose, so the
			// bleed check stays off here.
			events, err := analyzer.AnalyzeFile(args[0], rhythm.SessionParams{
				BPM:             bpm,
				DurationSeconds: duration,
				SkipBleedCheck:  true,
			})
			if err != nil {
				return err
			}

			if len(events) == 0 {
				fmt.Println("No beats detected in the calibration recording.")
				return nil
			}

			fmt.Printf("Suggested latency offset: %dms (from %d taps)\n",
				rhythm.SuggestedLatencyMs(events), len(events))
			return nil
		},
	}

	cmd.Flags().IntVarP(&bpm, "bpm", "b", 60, "Tempo of the calibration click")
	cmd.Flags().IntVarP(&duration, "duration", "d", 10, "Calibration length in seconds")

	return cmd
}

// newGenCmd writes a synthetic click-track WAV: sine bursts on an exact
// BPM grid, used for calibration checks and pipeline smoke tests
func newGenCmd() *cobra.Command {
	var (
		bpm       int
		duration  int
		out       string
		amplitude float64
		freq      float64
		clickMs   int
	)

	cmd := &cobra.Command{
		Use:           "gen",
		Short:         "Generate a synthetic click-track WAV",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeClickTrack(out, bpm, duration, amplitude, freq, clickMs)
		},
	}

	cmd.Flags().IntVarP(&bpm, "bpm", "b", 60, "Click tempo (beats per minute)")
	cmd.Flags().IntVarP(&duration, "duration", "d", 5, "Track length in seconds")
	cmd.Flags().StringVarP(&out, "out", "o", "click-track.wav", "Output WAV path")
	cmd.Flags().Float64VarP(&amplitude, "amplitude", "a", 0.76, "Click amplitude, 0-1 of full scale")
	cmd.Flags().Float64VarP(&freq, "freq", "f", 1000, "Click sine frequency in Hz")
	cmd.Flags().IntVar(&clickMs, "click-ms", 50, "Click length in milliseconds")

	return cmd
}

func writeClickTrack(path string, bpm, duration int, amplitude, freq float64, clickMs int) error {
	const sampleRate = 44100

	if bpm <= 0 || duration <= 0 {
		return fmt.Errorf("bpm and duration must be positive")
	}

	totalSamples := duration * sampleRate
	clickSamples := clickMs * sampleRate / 1000
	beatInterval := 60.0 / float64(bpm)

	data := make([]int, totalSamples)
	for beat := 0.0; beat < float64(duration); beat += beatInterval {
		start := int(beat * sampleRate)
		for i := 0; i < clickSamples && start+i < totalSamples; i++ {
			v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
			data[start+i] = int(v * 32767.0)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer file.Close()

	encoder := wav.NewEncoder(file, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("writing samples: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("finalizing wav: %w", err)
	}

	fmt.Printf("Wrote %s: %ds of %d BPM clicks at %.0f Hz\n", path, duration, bpm, freq)
	return nil
}
