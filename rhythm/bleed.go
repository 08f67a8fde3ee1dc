package rhythm

import "fmt"

// BleedError reports metronome bleed: the microphone picked up the
// metronome's own click instead of the player's taps.
//
// A human cannot hold timing tighter than a few milliseconds of standard
// deviation across a whole session; machine-regular consistency means the
// data is the click track, not the performance. This is the one failure the
// pipeline must surface as a distinct condition rather than an empty result,
// because the corrective action ("use headphones") differs from every other
// empty-result cause. Callers test for it with errors.As.
type BleedError struct {
	ConsistencyMs float64 // measured stddev of the signed errors
	Events        int     // number of matched events the measurement covers
}

func (e *BleedError) Error() string {
	return fmt.Sprintf("metronome bleed detected: %.2fms timing consistency over %d events is machine-regular, record with headphones", e.ConsistencyMs, e.Events)
}
