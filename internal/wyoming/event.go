// Package wyoming implements the line-delimited JSON event protocol used to
// talk to mic/snd/wake/event peers and the conversational server.
package wyoming

import "time"

// Event is an immutable (header, payload) pair. Data carries the decoded
// JSON body of the header's "data" field; Payload is the raw binary blob
// that follows the header line on the wire, if any.
type Event struct {
	Type    string
	Data    map[string]any
	Payload []byte
}

// Well-known event type strings (spec.md §6 vocabulary).
const (
	TypePing             = "ping"
	TypePong             = "pong"
	TypeRunSatellite      = "run-satellite"
	TypePauseSatellite    = "pause-satellite"
	TypeAudioStart        = "audio-start"
	TypeAudioChunk        = "audio-chunk"
	TypeAudioStop         = "audio-stop"
	TypeDetect            = "detect"
	TypeDetection         = "detection"
	TypeVoiceStarted      = "voice-started"
	TypeVoiceStopped      = "voice-stopped"
	TypeTranscript        = "transcript"
	TypeSynthesize        = "synthesize"
	TypeError             = "error"
	TypeTimerStarted      = "timer-started"
	TypeTimerUpdated      = "timer-updated"
	TypeTimerCancelled    = "timer-cancelled"
	TypeTimerFinished     = "timer-finished"
	TypeDescribe          = "describe"
	TypeInfo              = "info"
	TypeRunPipeline       = "run-pipeline"

	// Event-peer-only observability types (spec.md §6).
	TypeSatelliteConnected    = "satellite-connected"
	TypeSatelliteDisconnected = "satellite-disconnected"
	TypeStreamingStarted      = "streaming-started"
	TypeStreamingStopped      = "streaming-stopped"
	TypePlayed                = "played"
)

// AudioFormat is the rate/width/channels triple carried inside audio event
// headers.
type AudioFormat struct {
	Rate     int
	Width    int
	Channels int
}

// BytesPerSecond returns the number of PCM bytes this format produces per
// second of audio.
func (f AudioFormat) BytesPerSecond() int {
	return f.Rate * f.Width * f.Channels
}

// NewPing builds a ping event carrying an opaque round-trip token.
func NewPing(text string) Event {
	return Event{Type: TypePing, Data: map[string]any{"text": text}}
}

// NewPong builds a pong reply echoing the ping's token.
func NewPong(text string) Event {
	return Event{Type: TypePong, Data: map[string]any{"text": text}}
}

// NewAudioStart builds an audio-start event announcing the format of the
// chunks that will follow.
func NewAudioStart(format AudioFormat, timestampMs int64) Event {
	return Event{
		Type: TypeAudioStart,
		Data: map[string]any{
			"rate": format.Rate, "width": format.Width, "channels": format.Channels,
			"timestamp": timestampMs,
		},
	}
}

// NewAudioChunk builds an audio-chunk event carrying raw little-endian PCM.
func NewAudioChunk(format AudioFormat, timestampMs int64, pcm []byte) Event {
	return Event{
		Type: TypeAudioChunk,
		Data: map[string]any{
			"rate": format.Rate, "width": format.Width, "channels": format.Channels,
			"timestamp": timestampMs,
		},
		Payload: pcm,
	}
}

// NewAudioStop builds an audio-stop event closing an utterance.
func NewAudioStop(timestampMs int64) Event {
	return Event{Type: TypeAudioStop, Data: map[string]any{"timestamp": timestampMs}}
}

// AudioFormatOf extracts rate/width/channels from an audio event's data.
// Returns the zero value if any field is missing or not numeric.
func AudioFormatOf(e Event) AudioFormat {
	return AudioFormat{
		Rate:     intField(e.Data, "rate"),
		Width:    intField(e.Data, "width"),
		Channels: intField(e.Data, "channels"),
	}
}

// TimestampMsOf returns the event's "timestamp" field in milliseconds, or 0.
func TimestampMsOf(e Event) int64 {
	v, ok := e.Data["timestamp"]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func intField(data map[string]any, key string) int {
	if data == nil {
		return 0
	}
	v, ok := data[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

// StringField returns a string data field, or "" if absent/non-string.
func StringField(e Event, key string) string {
	if e.Data == nil {
		return ""
	}
	s, _ := e.Data[key].(string)
	return s
}

// NowMillis is a small seam so callers don't need to reach for time.Now
// directly inside event constructors that take it as an argument.
func NowMillis(t time.Time) int64 {
	return t.UnixMilli()
}
