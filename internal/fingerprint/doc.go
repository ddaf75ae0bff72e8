// Package fingerprint implements the last-resort content identification
// engines: spectral constellation hashing over buffered audio and perceptual
// hashing over captured frames. Both are pure functions of their input;
// identical buffers and images always produce identical hashes.
package fingerprint
