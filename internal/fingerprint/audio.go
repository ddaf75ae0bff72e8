package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Constellation analysis parameters.
const (
	windowSize = 4096
	hopSize    = 2048

	bandCount = 32
	minFreqHz = 300.0
	maxFreqHz = 5000.0

	energyThreshold = 0.1
	maxPeaks        = 500
	pairFanout      = 5
	pairWindowSec   = 2.0

	hashLength = 16
)

// AudioFingerprint is the product of one constellation run over a buffer.
type AudioFingerprint struct {
	Hash       string    `json:"hash"`
	Duration   float64   `json:"duration"`
	SampleRate int       `json:"sample_rate"`
	PeakCount  int       `json:"peak_count"`
	Timestamp  time.Time `json:"timestamp"`
}

// peak is one time-frequency energy maximum above the threshold.
type peak struct {
	timeSec   float64
	freqHz    float64
	magnitude float64
}

// AudioEngine buffers mono PCM in a bounded ring and fingerprints it on
// demand. Appending beyond the configured duration evicts the oldest
// samples.
type AudioEngine struct {
	mu         sync.Mutex
	sampleRate int
	maxSamples int
	samples    []float64
	clock      func() time.Time
}

// NewAudioEngine sizes the ring for bufferSeconds of audio at sampleRate.
func NewAudioEngine(sampleRate, bufferSeconds int) *AudioEngine {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if bufferSeconds <= 0 {
		bufferSeconds = 30
	}
	return &AudioEngine{
		sampleRate: sampleRate,
		maxSamples: sampleRate * bufferSeconds,
		clock:      time.Now,
	}
}

// SampleRate returns the rate the engine was sized for.
func (e *AudioEngine) SampleRate() int { return e.sampleRate }

// Append adds a chunk of samples, evicting the oldest past capacity.
func (e *AudioEngine) Append(chunk []float64) {
	if len(chunk) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.samples = append(e.samples, chunk...)
	if over := len(e.samples) - e.maxSamples; over > 0 {
		e.samples = append(e.samples[:0], e.samples[over:]...)
	}
}

// BufferedDuration reports how much audio the ring currently holds.
func (e *AudioEngine) BufferedDuration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(len(e.samples)) / float64(e.sampleRate)
}

// Reset drops all buffered audio.
func (e *AudioEngine) Reset() {
	e.mu.Lock()
	e.samples = e.samples[:0]
	e.mu.Unlock()
}

// Fingerprint runs the constellation pipeline over the buffered audio.
// Silence and buffers shorter than one window yield zero peaks and the
// defined empty-pair hash rather than an error.
func (e *AudioEngine) Fingerprint() AudioFingerprint {
	e.mu.Lock()
	samples := make([]float64, len(e.samples))
	copy(samples, e.samples)
	e.mu.Unlock()

	hash, peakCount := FingerprintSamples(samples, e.sampleRate)
	return AudioFingerprint{
		Hash:       hash,
		Duration:   float64(len(samples)) / float64(e.sampleRate),
		SampleRate: e.sampleRate,
		PeakCount:  peakCount,
		Timestamp:  e.clock().UTC(),
	}
}

// FingerprintSamples hashes a raw sample buffer. It is deterministic:
// identical buffers always produce identical hashes.
func FingerprintSamples(samples []float64, sampleRate int) (hash string, peakCount int) {
	peaks := extractPeaks(samples, sampleRate)
	return hashPairs(buildPairKeys(peaks)), len(peaks)
}

// extractPeaks frames the buffer into overlapping windows and keeps band
// energies above the threshold, capped at the strongest maxPeaks.
func extractPeaks(samples []float64, sampleRate int) []peak {
	if len(samples) < windowSize || sampleRate <= 0 {
		return nil
	}

	binWidth := float64(sampleRate) / windowSize
	bandWidth := (maxFreqHz - minFreqHz) / bandCount

	var peaks []peak
	for start := 0; start+windowSize <= len(samples); start += hopSize {
		mags := spectrum(samples[start : start+windowSize])
		t := float64(start) / float64(sampleRate)

		for band := 0; band < bandCount; band++ {
			lo := minFreqHz + float64(band)*bandWidth
			hi := lo + bandWidth
			loBin := int(lo / binWidth)
			hiBin := int(hi / binWidth)
			if hiBin > len(mags) {
				hiBin = len(mags)
			}

			best := 0.0
			bestBin := -1
			for bin := loBin; bin < hiBin; bin++ {
				if mags[bin] > best {
					best = mags[bin]
					bestBin = bin
				}
			}
			if bestBin >= 0 && best > energyThreshold {
				peaks = append(peaks, peak{
					timeSec:   t,
					freqHz:    float64(bestBin) * binWidth,
					magnitude: best,
				})
			}
		}
	}

	// Strongest first, with a full ordering so equal magnitudes cannot
	// reorder between runs.
	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].magnitude != peaks[j].magnitude {
			return peaks[i].magnitude > peaks[j].magnitude
		}
		if peaks[i].timeSec != peaks[j].timeSec {
			return peaks[i].timeSec < peaks[j].timeSec
		}
		return peaks[i].freqHz < peaks[j].freqHz
	})
	if len(peaks) > maxPeaks {
		peaks = peaks[:maxPeaks]
	}

	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].timeSec != peaks[j].timeSec {
			return peaks[i].timeSec < peaks[j].timeSec
		}
		return peaks[i].freqHz < peaks[j].freqHz
	})
	return peaks
}

// buildPairKeys pairs each anchor with up to pairFanout forward peaks inside
// the pair window and serializes the quantized triples.
func buildPairKeys(peaks []peak) []string {
	var keys []string
	for i := range peaks {
		paired := 0
		for j := i + 1; j < len(peaks) && paired < pairFanout; j++ {
			dt := peaks[j].timeSec - peaks[i].timeSec
			if dt > pairWindowSec {
				break
			}
			key := strconv.Itoa(int(peaks[i].freqHz/10)) + "|" +
				strconv.Itoa(int(peaks[j].freqHz/10)) + "|" +
				strconv.Itoa(int(dt*100))
			keys = append(keys, key)
			paired++
		}
	}
	return keys
}

// hashPairs condenses the concatenated pair keys into the fixed-length
// fingerprint. Zero pairs hash the empty string, giving silence a stable
// defined value.
func hashPairs(keys []string) string {
	sum := sha256.Sum256([]byte(strings.Join(keys, ";")))
	return hex.EncodeToString(sum[:])[:hashLength]
}
