package rhythm

import (
	"math"

	"github.com/itsvetkov1/rhythm-coach-sub001/algorithms/stats"
)

// OnTimeWindowMs is the half-width of the "on time" band: taps within this
// many milliseconds of the beat in either direction count as on time.
const OnTimeWindowMs = 10.0

// Summary aggregates a session's tap events into the figures the UI and
// the coaching layer display.
type Summary struct {
	ExpectedBeats int `json:"expected_beats"` // beats in the theoretical grid
	MatchedBeats  int `json:"matched_beats"`  // beats that found an onset
	MissedBeats   int `json:"missed_beats"`   // beats with no onset in tolerance

	AverageErrorMs  float64 `json:"average_error_ms"`   // mean |error|
	MeanSignedMs    float64 `json:"mean_signed_ms"`     // early/late bias, negative = early
	ConsistencyMs   float64 `json:"consistency_ms"`     // population stddev of signed errors
	EarlyCount      int     `json:"early_count"`        // taps earlier than the on-time band
	LateCount       int     `json:"late_count"`         // taps later than the on-time band
	OnTimeCount     int     `json:"on_time_count"`      // taps within +-OnTimeWindowMs
}

// Summarize computes the aggregate statistics for a session. expectedBeats
// is the size of the theoretical grid the events were matched against.
func Summarize(events []TapEvent, expectedBeats int) Summary {
	errs := errorsOf(events)

	s := Summary{
		ExpectedBeats:  expectedBeats,
		MatchedBeats:   len(events),
		MissedBeats:    expectedBeats - len(events),
		AverageErrorMs: stats.AverageAbsoluteError(errs),
		MeanSignedMs:   stats.MeanSignedError(errs),
		ConsistencyMs:  stats.Consistency(errs),
	}
	if s.MissedBeats < 0 {
		s.MissedBeats = 0
	}

	for _, e := range errs {
		switch {
		case e < -OnTimeWindowMs:
			s.EarlyCount++
		case e > OnTimeWindowMs:
			s.LateCount++
		default:
			s.OnTimeCount++
		}
	}

	return s
}

// SuggestedLatencyMs derives a device latency offset from a calibration
// session: the mean signed error rounded to whole milliseconds. Feeding the
// result back as the session latency offset recenters the bias at zero.
func SuggestedLatencyMs(events []TapEvent) int {
	if len(events) == 0 {
		return 0
	}
	return int(math.Round(stats.MeanSignedError(errorsOf(events))))
}
