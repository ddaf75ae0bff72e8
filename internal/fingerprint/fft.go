package fingerprint

import (
	"math"
	"math/bits"
	"math/cmplx"
)

// fft computes an in-place iterative radix-2 transform. The input length
// must be a power of two; the analysis window size guarantees that.
func fft(buf []complex128) {
	n := len(buf)
	if n < 2 {
		return
	}

	// Bit-reversal permutation.
	shift := 64 - uint(bits.TrailingZeros(uint(n)))
	for i := 0; i < n; i++ {
		j := int(bits.Reverse64(uint64(i)) >> shift)
		if j > i {
			buf[i], buf[j] = buf[j], buf[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		step := cmplx.Exp(complex(0, -2*math.Pi/float64(size)))
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			for k := 0; k < half; k++ {
				even := buf[start+k]
				odd := buf[start+k+half] * w
				buf[start+k] = even + odd
				buf[start+k+half] = even - odd
				w *= step
			}
		}
	}
}

// spectrum returns normalized magnitudes for the first half of the window's
// transform. Magnitudes are scaled so a full-scale sine lands near 1.0 in
// its bin.
func spectrum(samples []float64) []float64 {
	n := len(samples)
	buf := make([]complex128, n)
	for i, s := range samples {
		buf[i] = complex(s, 0)
	}
	fft(buf)

	mags := make([]float64, n/2)
	scale := 2 / float64(n)
	for i := range mags {
		mags[i] = cmplx.Abs(buf[i]) * scale
	}
	return mags
}
