package spectral

import (
	"math"
)

// SpectralFlux computes a half-wave-rectified spectral flux novelty curve,
// the standard onset-strength measure: sudden rises in the magnitude
// spectrum score high, decays score zero.
type SpectralFlux struct {
	stft *STFT
}

// NoveltyCurve holds per-frame onset strength and the matching timestamps.
// Flux and FrameTime are parallel slices of equal length; FrameTime is
// monotonically increasing, in seconds from signal start.
type NoveltyCurve struct {
	Flux      []float64 `json:"flux"`
	FrameTime []float64 `json:"frame_time"`
}

// NewSpectralFlux creates a new spectral flux calculator
func NewSpectralFlux() *SpectralFlux {
	return &SpectralFlux{
		stft: NewSTFT(),
	}
}

// ComputeNovelty runs a framed STFT over the signal and differences
// log-compressed magnitude spectra between consecutive frames.
//
// Magnitudes are compressed as ln(1 + gamma*|z|) before differencing, so
// loud and soft hits produce comparable relative novelty. Only magnitude
// increases contribute (half-wave rectification); the flux for frame t is
// the sum of positive bin differences against frame t-1.
//
// The first frame has nothing to difference against, so the curve has one
// value fewer than the STFT has frames. Each flux value is stamped at
// (frameStart + hopSize/2) / sampleRate: flux measures a transition between
// two frames, so the best timestamp estimate is the point between them, not
// the window center.
//
// Signals shorter than one window produce an empty curve, not an error.
func (sf *SpectralFlux) ComputeNovelty(signal []float64, windowSize, hopSize, sampleRate int, gamma float64, window Window) (*NoveltyCurve, error) {
	stftResult, err := sf.stft.ComputeWithWindow(signal, windowSize, hopSize, sampleRate, window)
	if err != nil {
		return nil, err
	}

	if stftResult.TimeFrames < 2 {
		return &NoveltyCurve{Flux: []float64{}, FrameTime: []float64{}}, nil
	}

	numValues := stftResult.TimeFrames - 1
	flux := make([]float64, numValues)
	frameTime := make([]float64, numValues)

	prevMag := compressMagnitudes(stftResult.Magnitude[0], gamma)

	for t := 1; t < stftResult.TimeFrames; t++ {
		currMag := compressMagnitudes(stftResult.Magnitude[t], gamma)

		sum := 0.0
		for j := range currMag {
			diff := currMag[j] - prevMag[j]
			if diff > 0 { // Only energy increases count
				sum += diff
			}
		}

		frameStart := t * hopSize
		flux[t-1] = sum
		frameTime[t-1] = (float64(frameStart) + float64(hopSize)/2.0) / float64(sampleRate)

		prevMag = currMag
	}

	return &NoveltyCurve{Flux: flux, FrameTime: frameTime}, nil
}

// compressMagnitudes applies logarithmic dynamic-range compression to one
// frame of magnitude spectra
func compressMagnitudes(magnitudes []float64, gamma float64) []float64 {
	compressed := make([]float64, len(magnitudes))
	for i, mag := range magnitudes {
		compressed[i] = math.Log(1.0 + gamma*mag)
	}
	return compressed
}
