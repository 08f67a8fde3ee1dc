package rhythm

import "math"

// ExpectedBeats generates the theoretical beat grid for a tempo:
// 0, 60/bpm, 120/bpm, ... while strictly less than the session duration.
// The grid is stateless and regenerated per call.
func ExpectedBeats(bpm, durationSeconds float64) []float64 {
	if bpm <= 0 || durationSeconds <= 0 {
		return []float64{}
	}

	beatInterval := 60.0 / bpm
	var beats []float64
	for t := 0.0; t < durationSeconds; t += beatInterval {
		beats = append(beats, t)
	}
	return beats
}

// CorrectLatency subtracts a fixed recording-path delay from every onset
// time. A positive latencyMs means the capture path delayed the true
// acoustic event by that much, so subtracting recovers the true tap time.
func CorrectLatency(onsets []float64, latencyMs float64) []float64 {
	corrected := make([]float64, len(onsets))
	offset := latencyMs / 1000.0
	for i, t := range onsets {
		corrected[i] = t - offset
	}
	return corrected
}

// MatchToGrid pairs expected beats with detected onsets.
//
// For each expected beat, in order, the nearest onset within toleranceSec
// is selected; a beat with no onset in range produces no event (a missed
// beat). Ties go to the first minimum in scan order. Onsets are not
// consumed on match, so one onset can in principle satisfy adjacent beats;
// that per-beat-independent behavior is intentional and pinned by tests.
func MatchToGrid(onsets, expectedBeats []float64, toleranceSec float64) []TapEvent {
	var events []TapEvent

	for _, beat := range expectedBeats {
		bestDistance := math.MaxFloat64
		bestOnset := 0.0
		matched := false

		for _, onset := range onsets {
			distance := math.Abs(onset - beat)
			if distance <= toleranceSec && distance < bestDistance {
				bestDistance = distance
				bestOnset = onset
				matched = true
			}
		}

		if matched {
			events = append(events, TapEvent{
				ExpectedTime: beat,
				ActualTime:   bestOnset,
				ErrorMs:      (bestOnset - beat) * 1000.0,
			})
		}
	}

	return events
}
