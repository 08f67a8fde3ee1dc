package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Timing statistics over per-tap errors (milliseconds, signed: positive is
// late, negative is early). Built on gonum for the moment math.

// AverageAbsoluteError returns the mean of |error|: how far off the player
// is, ignoring direction. Returns 0 for an empty slice.
func AverageAbsoluteError(errors []float64) float64 {
	if len(errors) == 0 {
		return 0.0
	}

	abs := make([]float64, len(errors))
	for i, e := range errors {
		abs[i] = math.Abs(e)
	}

	return stat.Mean(abs, nil)
}

// MeanSignedError returns the mean signed error: the player's systematic
// early/late bias. This is the value latency calibration feeds back as the
// device latency offset. Returns 0 for an empty slice.
func MeanSignedError(errors []float64) float64 {
	if len(errors) == 0 {
		return 0.0
	}

	return stat.Mean(errors, nil)
}

// Consistency returns the population standard deviation of the signed
// errors. Lower is steadier. Computed over signed errors, not absolute
// ones: a player who alternates equally early and late is inconsistent
// even though the bias cancels. Returns 0 for fewer than two values.
func Consistency(errors []float64) float64 {
	if len(errors) < 2 {
		return 0.0
	}

	return stat.PopStdDev(errors, nil)
}
