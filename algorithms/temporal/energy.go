package temporal

import (
	"math"
)

// RMS calculates root-mean-square energy over the entire buffer.
// Returns 0 for an empty buffer.
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0.0
	}

	sumSquares := 0.0
	for _, sample := range signal {
		sumSquares += sample * sample
	}

	return math.Sqrt(sumSquares / float64(len(signal)))
}

// ShortTimeRMS calculates RMS energy for overlapping frames.
// Returns one value per frame; signals shorter than one frame yield an
// empty slice.
func ShortTimeRMS(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) < frameSize || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	energies := make([]float64, numFrames)

	for i := 0; i < numFrames; i++ {
		startIdx := i * hopSize
		endIdx := startIdx + frameSize

		sumSquares := 0.0
		for j := startIdx; j < endIdx; j++ {
			sumSquares += signal[j] * signal[j]
		}
		energies[i] = math.Sqrt(sumSquares / float64(frameSize))
	}

	return energies
}

// PeakAmplitude returns the largest absolute sample value in the buffer
func PeakAmplitude(signal []float64) float64 {
	peak := 0.0
	for _, sample := range signal {
		if abs := math.Abs(sample); abs > peak {
			peak = abs
		}
	}
	return peak
}
