// Package audiofeatures decodes PCM WAV recordings and extracts the
// small feature set used by the local heart-sound classifier.
package audiofeatures

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Analysis window, matching the preprocessing used when the reference
// model was trained: the first two seconds of the recording.
const windowSeconds = 2.0

// ErrNotWAV is returned when the payload does not carry a RIFF/WAVE header.
var ErrNotWAV = errors.New("payload is not a RIFF/WAVE file")

// Features summarizes one recording window.
type Features struct {
	SampleRate int
	// Duration of the decoded window in seconds.
	Duration float64
	// RMS is the root-mean-square energy of the window, in [0,1].
	RMS float64
	// ZeroCrossingRate is the fraction of adjacent sample pairs that
	// change sign. Murmur noise between beats raises it.
	ZeroCrossingRate float64
	// HighFreqRatio is first-difference energy over total energy, a
	// cheap proxy for high-frequency content.
	HighFreqRatio float64
}

// wavFormat describes the fmt chunk fields we need.
type wavFormat struct {
	audioFormat   uint16
	numChannels   uint16
	sampleRate    uint32
	bitsPerSample uint16
}

// Extract decodes a PCM16 WAV payload and computes Features over the
// leading analysis window. Stereo input is downmixed to mono.
func Extract(data []byte) (*Features, error) {
	samples, sampleRate, err := DecodePCM16(data)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, errors.New("wav file contains no samples")
	}

	window := int(float64(sampleRate) * windowSeconds)
	if window > len(samples) {
		window = len(samples)
	}
	samples = samples[:window]

	var sumSq, diffSq float64
	crossings := 0
	for i, s := range samples {
		sumSq += s * s
		if i > 0 {
			d := s - samples[i-1]
			diffSq += d * d
			if (s >= 0) != (samples[i-1] >= 0) {
				crossings++
			}
		}
	}

	f := &Features{
		SampleRate: sampleRate,
		Duration:   float64(len(samples)) / float64(sampleRate),
		RMS:        math.Sqrt(sumSq / float64(len(samples))),
	}
	if len(samples) > 1 {
		f.ZeroCrossingRate = float64(crossings) / float64(len(samples)-1)
	}
	if sumSq > 0 {
		f.HighFreqRatio = diffSq / (2 * sumSq)
	}
	return f, nil
}

// DecodePCM16 parses a RIFF/WAVE payload with 16-bit PCM data and
// returns normalized mono samples in [-1,1] and the sample rate.
func DecodePCM16(data []byte) ([]float64, int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, ErrNotWAV
	}

	var format *wavFormat
	var pcm []byte

	// Walk the chunk list; fmt must precede data.
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, fmt.Errorf("wav fmt chunk too short: %d bytes", chunkSize)
			}
			format = &wavFormat{
				audioFormat:   binary.LittleEndian.Uint16(data[body : body+2]),
				numChannels:   binary.LittleEndian.Uint16(data[body+2 : body+4]),
				sampleRate:    binary.LittleEndian.Uint32(data[body+4 : body+8]),
				bitsPerSample: binary.LittleEndian.Uint16(data[body+14 : body+16]),
			}
		case "data":
			pcm = data[body : body+chunkSize]
		}

		// Chunks are word-aligned.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
		if format != nil && pcm != nil {
			break
		}
	}

	if format == nil {
		return nil, 0, errors.New("wav file has no fmt chunk")
	}
	if pcm == nil {
		return nil, 0, errors.New("wav file has no data chunk")
	}
	if format.audioFormat != 1 || format.bitsPerSample != 16 {
		return nil, 0, fmt.Errorf("unsupported wav encoding: format=%d bits=%d (want PCM16)",
			format.audioFormat, format.bitsPerSample)
	}
	if format.numChannels == 0 || format.sampleRate == 0 {
		return nil, 0, errors.New("wav fmt chunk has zero channels or sample rate")
	}

	channels := int(format.numChannels)
	frameBytes := channels * 2
	frames := len(pcm) / frameBytes

	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			off := i*frameBytes + ch*2
			sum += float64(int16(binary.LittleEndian.Uint16(pcm[off : off+2])))
		}
		samples[i] = sum / float64(channels) / 32768.0
	}
	return samples, int(format.sampleRate), nil
}
