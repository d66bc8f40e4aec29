// Package dsp wraps the voice-activity and noise-suppression black boxes
// used by the VAD streaming mode (spec.md §4.4/§4.7.2), plus the
// VoiceCommandSegmenter timing state machine from
// original_source/wyoming_satellite/vad.py.
package dsp

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/streamer45/silero-vad-go/speech"
)

// VAD is the hysteresis wrapper around a raw per-chunk speech probability
// source, matching original_source/wyoming_satellite/vad.py's SileroVad:
// each chunk scoring at or above Threshold raises an activation counter by
// one and each other chunk lowers it by one (never below zero); a chunk is
// "speech" once the counter reaches TriggerLevel, which resets the counter.
type VAD struct {
	detector     *speech.Detector
	threshold    float32
	triggerLevel int
	activation   int
}

// VADConfig mirrors settings.VadSettings (threshold/trigger_level) plus
// the model path and sample rate the detector needs at construction time.
type VADConfig struct {
	ModelPath    string
	SampleRate   int
	Threshold    float32
	TriggerLevel int
}

// NewVAD loads the Silero ONNX model via streamer45/silero-vad-go and
// returns a hysteresis-wrapped detector ready to score 16-bit PCM chunks.
func NewVAD(cfg VADConfig) (*VAD, error) {
	if cfg.TriggerLevel < 1 {
		cfg.TriggerLevel = 1
	}
	det, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            cfg.ModelPath,
		SampleRate:           cfg.SampleRate,
		Threshold:            cfg.Threshold,
		MinSilenceDurationMs: 100,
		SpeechPadMs:          0,
	})
	if err != nil {
		return nil, fmt.Errorf("dsp: load silero model %s: %w", cfg.ModelPath, err)
	}
	return &VAD{detector: det, threshold: cfg.Threshold, triggerLevel: cfg.TriggerLevel}, nil
}

// Close releases the underlying ONNX runtime session.
func (v *VAD) Close() error {
	return v.detector.Destroy()
}

// IsSpeech scores one 16-bit PCM mono chunk and returns whether the
// trigger-level activation counter has been satisfied, matching
// original_source/wyoming_satellite/vad.py's SileroVad.__call__: the
// counter increments on a chunk scoring at or above threshold and, once
// it reaches trigger_level, the counter resets to zero and true is
// returned for that single chunk; a chunk scoring below threshold decays
// the counter by one (floored at zero) rather than resetting it outright.
func (v *VAD) IsSpeech(chunk []byte) (bool, error) {
	samples := pcm16ToFloat32(chunk)
	segments, err := v.detector.Detect(samples)
	if err != nil {
		return false, fmt.Errorf("dsp: vad detect: %w", err)
	}

	if len(segments) > 0 {
		v.activation++
		if v.activation >= v.triggerLevel {
			v.activation = 0
			return true, nil
		}
		return false, nil
	}

	if v.activation > 0 {
		v.activation--
	}
	return false, nil
}

// Reset clears the activation counter and the detector's internal state,
// used between utterances so stale hysteresis doesn't leak across them.
func (v *VAD) Reset() error {
	v.activation = 0
	return v.detector.Reset()
}

func pcm16ToFloat32(chunk []byte) []float32 {
	out := make([]float32, len(chunk)/2)
	for i := range out {
		s := int16(binary.LittleEndian.Uint16(chunk[i*2 : i*2+2]))
		out[i] = float32(s) / math.MaxInt16
	}
	return out
}
