package fingerprint

import (
	"fmt"
	"image"
	"sync"
	"time"

	"golang.org/x/image/draw"
)

// pHash grid dimensions. An 8x8 grid packs into a 64-bit, 16-hex-char hash.
const (
	hashGridSize = 8
)

// VisualKind tags where a signature's pixels came from.
type VisualKind string

const (
	// KindVideoFrame marks a hash of a live video element frame.
	KindVideoFrame VisualKind = "video-frame"
	// KindViewportProxy marks a hash of a rendered-content proxy image,
	// used when no frame can be grabbed.
	KindViewportProxy VisualKind = "viewport-proxy"
)

// VisualSignature is the product of one perceptual hash run.
type VisualSignature struct {
	Kind      VisualKind `json:"kind"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Hash      string     `json:"hash"`
	Timestamp time.Time  `json:"timestamp"`
}

// VisualEngine wraps the perceptual hash with source tagging.
type VisualEngine struct {
	mu    sync.Mutex
	clock func() time.Time
}

// NewVisualEngine returns a ready engine.
func NewVisualEngine() *VisualEngine {
	return &VisualEngine{clock: time.Now}
}

// FromFrame hashes a grabbed video frame. A nil image yields nil.
func (e *VisualEngine) FromFrame(img image.Image) *VisualSignature {
	return e.signature(img, KindVideoFrame)
}

// FromViewport hashes a rendered-content proxy image. A nil image yields
// nil.
func (e *VisualEngine) FromViewport(img image.Image) *VisualSignature {
	return e.signature(img, KindViewportProxy)
}

func (e *VisualEngine) signature(img image.Image, kind VisualKind) *VisualSignature {
	if img == nil {
		return nil
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil
	}
	e.mu.Lock()
	now := e.clock().UTC()
	e.mu.Unlock()
	return &VisualSignature{
		Kind:      kind,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Hash:      HashImage(img),
		Timestamp: now,
	}
}

// HashImage computes the perceptual hash: smooth downsample to an 8x8 grid,
// BT.709 luma, one bit per cell against the mean, packed to hex.
func HashImage(img image.Image) string {
	small := image.NewRGBA(image.Rect(0, 0, hashGridSize, hashGridSize))
	draw.CatmullRom.Scale(small, small.Bounds(), img, img.Bounds(), draw.Src, nil)

	var luma [hashGridSize * hashGridSize]float64
	var mean float64
	for y := 0; y < hashGridSize; y++ {
		for x := 0; x < hashGridSize; x++ {
			offset := small.PixOffset(x, y)
			r := float64(small.Pix[offset])
			g := float64(small.Pix[offset+1])
			b := float64(small.Pix[offset+2])
			l := 0.2126*r + 0.7152*g + 0.0722*b
			luma[y*hashGridSize+x] = l
			mean += l
		}
	}
	mean /= hashGridSize * hashGridSize

	var packed uint64
	for i, l := range luma {
		if l >= mean {
			packed |= 1 << uint(63-i)
		}
	}
	return fmt.Sprintf("%016x", packed)
}

// HammingDistance counts differing bits between two equal-length hex
// hashes.
func HammingDistance(a, b string) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("hash lengths differ: %d vs %d", len(a), len(b))
	}
	dist := 0
	for i := 0; i < len(a); i++ {
		na, err := nibble(a[i])
		if err != nil {
			return 0, err
		}
		nb, err := nibble(b[i])
		if err != nil {
			return 0, err
		}
		x := na ^ nb
		for x != 0 {
			dist += int(x & 1)
			x >>= 1
		}
	}
	return dist, nil
}

// CompareSimilarity maps Hamming distance onto [0, 1]: identical hashes are
// 1, maximally distant hashes are 0.
func CompareSimilarity(a, b string) (float64, error) {
	dist, err := HammingDistance(a, b)
	if err != nil {
		return 0, err
	}
	if len(a) == 0 {
		return 1, nil
	}
	return 1 - float64(dist)/float64(4*len(a)), nil
}

func nibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	}
	return 0, fmt.Errorf("invalid hex digit %q", string(c))
}
