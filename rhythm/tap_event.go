package rhythm

// TapEvent is one detected tap matched against the theoretical beat grid.
// Events are immutable: the matcher creates them and every downstream
// consumer (statistics, UI, coaching prompt builder) reads them as plain
// data.
type TapEvent struct {
	ExpectedTime float64 `json:"expected_time"` // seconds, the beat-grid time this tap was matched to
	ActualTime   float64 `json:"actual_time"`   // seconds, the latency-corrected onset time
	ErrorMs      float64 `json:"error_ms"`      // (actual - expected) * 1000; positive = late, negative = early
}

// errorsOf extracts the signed millisecond errors from an event list
func errorsOf(events []TapEvent) []float64 {
	errs := make([]float64, len(events))
	for i, ev := range events {
		errs[i] = ev.ErrorMs
	}
	return errs
}
