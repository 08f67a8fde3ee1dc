package temporal

// Envelope parameters for onset refinement. The frame is short enough to
// resolve a click edge to a couple of milliseconds, the hop short enough
// that the edge cannot fall between frames.
const (
	refineFrameSize = 256
	refineHopSize   = 64

	// A rise below this fraction of the envelope peak is ripple, not an
	// energy edge; the coarse estimate is kept in that case.
	refineMinRiseFrac = 0.1
)

// RefineOnsets sharpens frame-grid onset times against the time-domain
// energy envelope.
//
// Spectral flux reacts as soon as a hit enters the analysis window, which
// stamps the onset well before the sound actually starts: with a
// 2048-sample window the flux peak can sit tens of milliseconds early. For
// each coarse onset this scans [t-searchBack, t+searchForward] samples, finds
// the largest rise between consecutive short-time RMS frames, and restamps
// the onset at the start of the samples that produced that rise.
//
// Onsets whose neighborhood shows no clear energy edge (or runs off the end
// of the signal) keep their coarse time. The returned times never reorder:
// a refinement that would move an onset behind its predecessor is discarded.
func RefineOnsets(samples, onsets []float64, sampleRate, searchBack, searchForward int) []float64 {
	refined := make([]float64, len(onsets))

	for i, t := range onsets {
		refined[i] = t

		center := int(t * float64(sampleRate))
		start := center - searchBack
		if start < 0 {
			start = 0
		}
		end := center + searchForward
		if end > len(samples) {
			end = len(samples)
		}
		if end <= start {
			continue
		}

		env := ShortTimeRMS(samples[start:end], refineFrameSize, refineHopSize)
		if len(env) < 2 {
			continue
		}

		peak := 0.0
		for _, e := range env {
			if e > peak {
				peak = e
			}
		}

		bestRise, bestIdx := 0.0, -1
		for j := 1; j < len(env); j++ {
			if rise := env[j] - env[j-1]; rise > bestRise {
				bestRise, bestIdx = rise, j
			}
		}
		if bestIdx < 0 || bestRise < refineMinRiseFrac*peak {
			continue
		}

		// The rise between frames j-1 and j is carried by the samples frame
		// j covers but frame j-1 does not: its trailing hop-length span.
		edge := start + bestIdx*refineHopSize + refineFrameSize - refineHopSize
		candidate := float64(edge) / float64(sampleRate)

		if i > 0 && candidate <= refined[i-1] {
			continue
		}
		refined[i] = candidate
	}

	return refined
}
