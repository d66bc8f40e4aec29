package dsp

import (
	"encoding/binary"
	"math"
)

// Denoiser is the pluggable noise-suppression/AGC stage ahead of the VAD
// (spec.md §4.4). No ecosystem Go binding for webrtc-audio-processing
// style noise suppression was found anywhere in the retrieved pack (see
// DESIGN.md); this is a standard-library stand-in behind the same
// interface a real binding would implement, so swapping one in later is a
// constructor change only, not a caller change.
//
// It implements a one-pole high-pass filter (removing DC/rumble) followed
// by a simple automatic-gain stage that scales each buffer passed to
// Process toward a target RMS with one gain for the whole buffer, after the
// shape (not the DSP quality) of the original project's
// webrtc_noise_suppression.py wrapper: buffer in, same-length buffer out,
// no cross-buffer audio reordering. Input is not split into 10ms frames;
// MicManager passes each whole mic chunk.
type Denoiser struct {
	targetRMS  float64
	prevIn     float64
	prevOut    float64
	alpha      float64
	maxGain    float64
}

// NewDenoiser builds a Denoiser whose high-pass filter is tuned for the
// given sample rate. The Denoiser imposes no frame size of its own.
func NewDenoiser(sampleRate int) *Denoiser {
	// High-pass cutoff around 80Hz: alpha = RC / (RC + dt).
	const cutoffHz = 80.0
	dt := 1.0 / float64(sampleRate)
	rc := 1.0 / (2 * 3.141592653589793 * cutoffHz)
	alpha := rc / (rc + dt)

	return &Denoiser{
		targetRMS: 3000,
		alpha:     alpha,
		maxGain:   4.0,
	}
}

// Process filters and gain-adjusts one PCM16 mono buffer of any length,
// returning a new byte slice of the same length; frame itself is not
// modified.
func (d *Denoiser) Process(frame []byte) []byte {
	n := len(frame) / 2
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		samples[i] = float64(int16(binary.LittleEndian.Uint16(frame[i*2 : i*2+2])))
	}

	filtered := make([]float64, n)
	for i, s := range samples {
		out := d.alpha*(d.prevOut+s-d.prevIn)
		filtered[i] = out
		d.prevIn = s
		d.prevOut = out
	}

	var sumSq float64
	for _, s := range filtered {
		sumSq += s * s
	}
	rms := 0.0
	if n > 0 {
		rms = math.Sqrt(sumSq / float64(n))
	}

	gain := 1.0
	if rms > 1 {
		gain = d.targetRMS / rms
		if gain > d.maxGain {
			gain = d.maxGain
		}
		if gain < 1.0/d.maxGain {
			gain = 1.0 / d.maxGain
		}
	}

	out := make([]byte, len(frame))
	for i, s := range filtered {
		v := s * gain
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(int16(v)))
	}
	return out
}
