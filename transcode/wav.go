package transcode

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/itsvetkov1/rhythm-coach-sub001/logging"
)

const (
	// Canonical RIFF header length, also used as the fallback data offset
	// for headerless/synthetic fixtures
	canonicalHeaderSize = 44

	// Full-scale divisor for signed 16-bit PCM
	pcm16Scale = 32768.0
)

// DecodeWAVFile reads a WAV file from disk and decodes it to normalized
// mono samples. A read failure (file missing, unreadable) is the only hard
// error; any malformed content decodes to an empty slice instead.
func DecodeWAVFile(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading wav file: %w", err)
	}

	return DecodeWAVBytes(data), nil
}

// DecodeWAVBytes extracts 16-bit little-endian PCM samples from a RIFF/WAVE
// container and normalizes them to [-1, 1].
//
// The decoder scans chunk headers to locate the "data" chunk rather than
// assuming a fixed layout, so containers carrying LIST/INFO metadata ahead
// of the audio decode the same as bare ones. When no "data" chunk exists
// the canonical 44-byte offset is used as a fallback, which tolerates raw
// PCM test fixtures with a synthetic header.
//
// Malformed input never panics or errors: anything unparseable decodes to
// an empty slice, which downstream treats as "nothing to analyze."
func DecodeWAVBytes(data []byte) []float64 {
	logger := logging.WithFields(logging.Fields{
		"component": "wav_decoder",
		"bytes":     len(data),
	})

	if len(data) < canonicalHeaderSize {
		logger.Debug("Buffer shorter than a WAV header, decoding to empty")
		return []float64{}
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		logger.Debug("Missing RIFF/WAVE markers, decoding to empty")
		return []float64{}
	}

	dataStart, dataSize, found := findDataChunk(data)
	if !found {
		// Tolerate fixtures without a data chunk: assume the canonical
		// header layout and treat everything after it as samples.
		dataStart = canonicalHeaderSize
		dataSize = len(data) - canonicalHeaderSize
		logger.Debug("No data chunk found, falling back to canonical offset", logging.Fields{
			"data_start": dataStart,
			"data_size":  dataSize,
		})
	}

	if dataStart+dataSize > len(data) {
		dataSize = len(data) - dataStart
	}

	// Drop a trailing odd byte; samples are two bytes each
	numSamples := dataSize / 2
	samples := make([]float64, numSamples)

	for i := 0; i < numSamples; i++ {
		offset := dataStart + i*2
		raw := int16(binary.LittleEndian.Uint16(data[offset : offset+2]))
		samples[i] = float64(raw) / pcm16Scale
	}

	logger.Debug("WAV decode completed", logging.Fields{
		"data_start": dataStart,
		"data_size":  dataSize,
		"samples":    numSamples,
	})

	return samples
}

// findDataChunk walks the chunk list starting after the RIFF/WAVE preamble
// and returns the byte range of the "data" chunk payload. Chunks are padded
// to even sizes per the RIFF word-alignment rule, so odd-sized chunks skip
// one extra byte.
func findDataChunk(data []byte) (start, size int, found bool) {
	pos := 12

	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))

		if chunkID == "data" {
			return pos + 8, chunkSize, true
		}

		advance := 8 + chunkSize
		if chunkSize%2 != 0 {
			advance++
		}
		if advance <= 0 {
			break
		}
		pos += advance
	}

	return 0, 0, false
}
