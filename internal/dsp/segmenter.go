package dsp

// Segmenter is a direct port of
// original_source/wyoming_satellite/vad.py's VoiceCommandSegmenter: a
// small countdown-timer state machine that decides when a voice command
// has started and ended from a stream of (chunk duration, is_speech)
// pairs, independent of the VAD's own trigger-level hysteresis.
// SPEC_FULL.md §3 exposes this as an optional refinement for
// VadStreaming, selected with --vad-segmenter.
type Segmenter struct {
	SpeechSeconds  float64
	SilenceSeconds float64
	TimeoutSeconds float64
	ResetSeconds   float64

	InCommand bool

	speechSecondsLeft  float64
	silenceSecondsLeft float64
	timeoutSecondsLeft float64
	resetSecondsLeft   float64
}

// NewSegmenter builds a Segmenter with the original project's defaults
// (0.3s speech, 1.0s silence, 15.0s timeout, 1.0s reset).
func NewSegmenter() *Segmenter {
	s := &Segmenter{
		SpeechSeconds:  0.3,
		SilenceSeconds: 1.0,
		TimeoutSeconds: 15.0,
		ResetSeconds:   1.0,
	}
	s.Reset()
	return s
}

// Reset clears all running counters and command state, for reuse across
// utterances.
func (s *Segmenter) Reset() {
	s.speechSecondsLeft = s.SpeechSeconds
	s.silenceSecondsLeft = s.SilenceSeconds
	s.timeoutSecondsLeft = s.TimeoutSeconds
	s.resetSecondsLeft = s.ResetSeconds
	s.InCommand = false
}

// Process advances the segmenter by one chunk of chunkSeconds duration
// scored isSpeech, and returns whether the command is still in progress.
// A false return means the command has ended, either because enough
// trailing silence was observed or because TimeoutSeconds elapsed since
// Process was first called (or last Reset).
func (s *Segmenter) Process(chunkSeconds float64, isSpeech bool) bool {
	s.timeoutSecondsLeft -= chunkSeconds
	if s.timeoutSecondsLeft <= 0 {
		s.Reset()
		return false
	}

	switch {
	case !s.InCommand && isSpeech:
		s.resetSecondsLeft = s.ResetSeconds
		s.speechSecondsLeft -= chunkSeconds
		if s.speechSecondsLeft <= 0 {
			s.InCommand = true
			s.silenceSecondsLeft = s.SilenceSeconds
		}
	case !s.InCommand && !isSpeech:
		s.resetSecondsLeft -= chunkSeconds
		if s.resetSecondsLeft <= 0 {
			s.speechSecondsLeft = s.SpeechSeconds
			s.resetSecondsLeft = s.ResetSeconds
		}
	case s.InCommand && !isSpeech:
		s.resetSecondsLeft = s.ResetSeconds
		s.silenceSecondsLeft -= chunkSeconds
		if s.silenceSecondsLeft <= 0 {
			s.Reset()
			return false
		}
	default: // InCommand && isSpeech
		s.resetSecondsLeft -= chunkSeconds
		if s.resetSecondsLeft <= 0 {
			s.silenceSecondsLeft = s.SilenceSeconds
			s.resetSecondsLeft = s.ResetSeconds
		}
	}

	return true
}
