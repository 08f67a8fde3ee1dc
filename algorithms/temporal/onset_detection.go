package temporal

// OnsetDetector picks onset times out of a spectral flux novelty curve
// using a local moving-average threshold, strict local maxima, and a
// tempo-derived minimum spacing between accepted onsets.
type OnsetDetector struct {
	preAvgFrames  int     // frames of local average before the candidate
	postAvgFrames int     // frames of local average after the candidate
	delta         float64 // sensitivity multiplier on the local average
	epsilon       float64 // threshold floor against near-zero noise

	minIntervalFloor    float64 // seconds, absolute spacing floor
	minIntervalBeatFrac float64 // fraction of the beat period used as spacing
}

// NewOnsetDetector creates an onset detector with the given picker parameters
func NewOnsetDetector(preAvgFrames, postAvgFrames int, delta, epsilon, minIntervalFloor, minIntervalBeatFrac float64) *OnsetDetector {
	return &OnsetDetector{
		preAvgFrames:        preAvgFrames,
		postAvgFrames:       postAvgFrames,
		delta:               delta,
		epsilon:             epsilon,
		minIntervalFloor:    minIntervalFloor,
		minIntervalBeatFrac: minIntervalBeatFrac,
	}
}

// Pick selects onset times from a novelty curve.
//
// flux and frameTime are the parallel outputs of the novelty extractor. An
// index qualifies when its flux exceeds the adaptive threshold and is a
// strict local maximum (plateaus do not trigger); the first and last
// indices are excluded since they have only one neighbor. Candidates are
// then accepted in a single left-to-right pass, skipping any candidate
// closer than MinInterval(bpm) to the last accepted onset.
//
// The returned times are chronologically ordered, in seconds.
func (od *OnsetDetector) Pick(flux, frameTime []float64, bpm float64) []float64 {
	if len(flux) < 3 || len(flux) != len(frameTime) {
		return []float64{}
	}

	threshold := od.adaptiveThreshold(flux)
	minInterval := od.MinInterval(bpm)

	var onsets []float64
	lastOnset := -minInterval // allow the first candidate

	for i := 1; i < len(flux)-1; i++ {
		if flux[i] <= threshold[i] {
			continue
		}
		if flux[i] <= flux[i-1] || flux[i] <= flux[i+1] {
			continue
		}
		if frameTime[i]-lastOnset < minInterval {
			continue
		}

		onsets = append(onsets, frameTime[i])
		lastOnset = frameTime[i]
	}

	return onsets
}

// MinInterval returns the minimum accepted spacing between onsets for a
// tempo. At slow tempos the spacing tracks the beat period, so the decay
// tail of one hit cannot register twice; at fast tempos the absolute floor
// dominates.
func (od *OnsetDetector) MinInterval(bpm float64) float64 {
	if bpm <= 0 {
		return od.minIntervalFloor
	}

	beatInterval := (60.0 / bpm) * od.minIntervalBeatFrac
	if beatInterval < od.minIntervalFloor {
		return od.minIntervalFloor
	}
	return beatInterval
}

// adaptiveThreshold computes a per-index threshold from the moving average
// of flux over [i-preAvg, i+postAvg], clamped to the array bounds:
// threshold[i] = avg*delta + epsilon.
func (od *OnsetDetector) adaptiveThreshold(flux []float64) []float64 {
	threshold := make([]float64, len(flux))

	for i := range flux {
		start := i - od.preAvgFrames
		if start < 0 {
			start = 0
		}
		end := i + od.postAvgFrames
		if end > len(flux)-1 {
			end = len(flux) - 1
		}

		sum := 0.0
		for j := start; j <= end; j++ {
			sum += flux[j]
		}
		avg := sum / float64(end-start+1)

		threshold[i] = avg*od.delta + od.epsilon
	}

	return threshold
}
