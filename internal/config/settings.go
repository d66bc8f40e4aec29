// Package config builds the immutable settings tree the rest of the
// satellite runs from, merging an optional YAML file with CLI flags.
// Ported from original_source/wyoming_satellite/settings.py's dataclasses.
package config

// Service is the shared shape of every peer subtree: a peer is enabled
// once it has a connect URI or a spawn command.
type Service struct {
	URI              string
	Command          []string
	ReconnectSeconds float64
}

// Enabled reports whether this peer subtree was configured at all.
func (s Service) Enabled() bool {
	return s.URI != "" || len(s.Command) > 0
}

// Mic holds the microphone peer's settings.
type Mic struct {
	Service
	VolumeMultiplier           float64
	AutoGain                   int
	NoiseSuppression           int
	Rate                       int
	Width                      int
	Channels                   int
	SamplesPerChunk            int
	ChannelIndex               int // -1 selects no single channel (already mono, or forward all)
	NoMuteDuringAwakeWav       bool
	SecondsToMuteAfterAwakeWav float64
}

// NeedsWebrtc reports whether the denoise/AGC stage (§4.4) must run.
func (m Mic) NeedsWebrtc() bool {
	return m.Enabled() && (m.AutoGain > 0 || m.NoiseSuppression > 0)
}

// NeedsProcessing reports whether any per-chunk DSP must run before
// forwarding mic audio, matching the original's needs_processing.
func (m Mic) NeedsProcessing() bool {
	return m.Enabled() && (m.VolumeMultiplier != 1.0 || m.NeedsWebrtc())
}

// Snd holds the audio-output peer's settings.
type Snd struct {
	Service
	VolumeMultiplier    float64
	AwakeWav            string
	DoneWav             string
	TimerFinishedWav    string
	TimerFinishedRepeat int
	TimerFinishedDelay  float64
	Rate                int
	Width               int
	Channels            int
	SamplesPerChunk     int
}

// NeedsProcessing reports whether playback volume scaling must run.
func (s Snd) NeedsProcessing() bool {
	return s.Enabled() && s.VolumeMultiplier != 1.0
}

// Wake holds the wake-word peer's settings.
type Wake struct {
	Service
	Names             []string
	Rate              int
	Width             int
	Channels          int
	RefractorySeconds float64
}

// Vad holds the local voice-activity-detection settings (§4.4/§4.7.2).
type Vad struct {
	Enabled         bool
	ModelPath       string
	Threshold       float64
	TriggerLevel    int
	BufferSeconds   float64
	WakeWordTimeout float64
	UseSegmenter    bool
}

// Event holds the event peer's settings plus the shell-command hooks
// spec.md §4.8/§6 names for each lifecycle point.
type Event struct {
	Service
	Startup        []string
	StreamingStart []string
	StreamingStop  []string
	Detect         []string
	Detection      []string
	Transcript     []string
	SttStart       []string
	SttStop        []string
	Synthesize     []string
	TtsStart       []string
	TtsStop        []string
	Error          []string
}

// Satellite is the top-level, immutable settings tree built once at
// startup and handed down to every component by constructor injection.
type Satellite struct {
	Name              string
	Area              string
	ServerURI         string
	Mic               Mic
	Vad               Vad
	Wake              Wake
	Snd               Snd
	Event             Event
	RestartTimeout    float64
	DebugRecordingDir string
	Zeroconf          Zeroconf
	LogDebug          bool
	LogFormat         string
}

// Zeroconf holds the optional mDNS/DNS-SD advertisement settings (§4.11).
type Zeroconf struct {
	Enabled bool
	Name    string
	Host    string
}

// Defaults returns a Satellite tree populated with the original project's
// defaults (settings.py), before any YAML or flag overlay is applied.
func Defaults() Satellite {
	return Satellite{
		RestartTimeout: 5.0,
		Mic: Mic{
			Service:                    Service{ReconnectSeconds: 3.0},
			VolumeMultiplier:           1.0,
			Rate:                       16000,
			Width:                      2,
			Channels:                   1,
			SamplesPerChunk:            1024,
			ChannelIndex:               -1,
			SecondsToMuteAfterAwakeWav: 0.5,
		},
		Snd: Snd{
			Service:          Service{ReconnectSeconds: 3.0},
			VolumeMultiplier: 1.0,
			Rate:             22050,
			Width:            2,
			Channels:         1,
			SamplesPerChunk:  1024,
		},
		Wake: Wake{
			Service:           Service{ReconnectSeconds: 3.0},
			Rate:              16000,
			Width:             2,
			Channels:          1,
			RefractorySeconds: 2.0,
		},
		Vad: Vad{
			Threshold:       0.5,
			TriggerLevel:    1,
			BufferSeconds:   2.0,
			WakeWordTimeout: 5.0,
		},
		Event: Event{
			Service: Service{ReconnectSeconds: 3.0},
		},
		Zeroconf:  Zeroconf{Enabled: true},
		LogFormat: "text",
	}
}
