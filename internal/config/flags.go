package config

import (
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// RegisterFlags wires one pflag.FlagSet grouped by peer subtree, matching
// teacher's cmd/direwolf/main.go per-subsystem flag layout. Flags default
// to s's current values (so calling this after LoadYAML makes
// unspecified-on-the-command-line flags fall back to the YAML value, and
// any flag the user does pass always wins - SPEC_FULL.md §8's merge-order
// property).
func RegisterFlags(fs *pflag.FlagSet, s *Satellite) {
	fs.StringVar(&s.Name, "name", s.Name, "Name of the satellite")
	fs.StringVar(&s.Area, "area", s.Area, "Area name to report in satellite info")
	fs.StringVar(&s.ServerURI, "uri", s.ServerURI, "Address to listen on for the Wyoming server (tcp://host:port or unix:///path)")
	fs.StringVar(&s.DebugRecordingDir, "debug-recording-dir", s.DebugRecordingDir, "Directory to record detected voice commands for debugging")
	fs.BoolVar(&s.LogDebug, "debug", s.LogDebug, "Enable debug logging")
	fs.StringVar(&s.LogFormat, "log-format", s.LogFormat, "Log output format: text or json")

	fs.StringVar(&s.Mic.URI, "mic-uri", s.Mic.URI, "Microphone peer URI")
	fs.Var(commandString{&s.Mic.Command}, "mic-command", "Microphone peer command")
	fs.Float64Var(&s.Mic.ReconnectSeconds, "mic-reconnect-seconds", s.Mic.ReconnectSeconds, "Seconds between mic reconnect attempts")
	fs.Float64Var(&s.Mic.VolumeMultiplier, "mic-volume-multiplier", s.Mic.VolumeMultiplier, "Mic input volume multiplier")
	fs.IntVar(&s.Mic.AutoGain, "mic-auto-gain", s.Mic.AutoGain, "Any value above 0 enables the built-in high-pass and gain stage (0 disables; the value is not used as a level)")
	fs.IntVar(&s.Mic.NoiseSuppression, "mic-noise-suppression", s.Mic.NoiseSuppression, "Any value above 0 enables the built-in high-pass and gain stage (0 disables; the value is not used as a level)")
	fs.IntVar(&s.Mic.Rate, "mic-rate", s.Mic.Rate, "Mic sample rate")
	fs.IntVar(&s.Mic.Width, "mic-width", s.Mic.Width, "Mic sample width in bytes")
	fs.IntVar(&s.Mic.Channels, "mic-channels", s.Mic.Channels, "Mic channel count")
	fs.IntVar(&s.Mic.SamplesPerChunk, "mic-samples-per-chunk", s.Mic.SamplesPerChunk, "Mic samples per chunk")
	fs.IntVar(&s.Mic.ChannelIndex, "mic-channel-index", s.Mic.ChannelIndex, "Select a single channel out of interleaved mic audio (-1 disables)")
	fs.BoolVar(&s.Mic.NoMuteDuringAwakeWav, "mic-no-mute-during-awake-wav", s.Mic.NoMuteDuringAwakeWav, "Do not mute the mic after a wake word detection")
	fs.Float64Var(&s.Mic.SecondsToMuteAfterAwakeWav, "mic-seconds-to-mute-after-awake-wav", s.Mic.SecondsToMuteAfterAwakeWav, "Seconds to keep the mic muted, counted from the wake word detection (not extended by awake WAV playback)")

	fs.StringVar(&s.Snd.URI, "snd-uri", s.Snd.URI, "Sound peer URI")
	fs.Var(commandString{&s.Snd.Command}, "snd-command", "Sound peer command")
	fs.Float64Var(&s.Snd.ReconnectSeconds, "snd-reconnect-seconds", s.Snd.ReconnectSeconds, "Seconds between snd reconnect attempts")
	fs.Float64Var(&s.Snd.VolumeMultiplier, "snd-volume-multiplier", s.Snd.VolumeMultiplier, "Playback volume multiplier")
	fs.StringVar(&s.Snd.AwakeWav, "awake-wav", s.Snd.AwakeWav, "WAV file to play when a wake word is detected")
	fs.StringVar(&s.Snd.DoneWav, "done-wav", s.Snd.DoneWav, "WAV file to play when a transcript arrives")
	fs.StringVar(&s.Snd.TimerFinishedWav, "timer-finished-wav", s.Snd.TimerFinishedWav, "WAV file to play when a timer finishes")
	fs.IntVar(&s.Snd.TimerFinishedRepeat, "timer-finished-wav-repeat-times", s.Snd.TimerFinishedRepeat, "Number of times to repeat the timer-finished WAV")
	fs.Float64Var(&s.Snd.TimerFinishedDelay, "timer-finished-wav-repeat-delay", s.Snd.TimerFinishedDelay, "Seconds of delay between timer-finished WAV repeats")
	fs.IntVar(&s.Snd.Rate, "snd-rate", s.Snd.Rate, "Playback sample rate")
	fs.IntVar(&s.Snd.Width, "snd-width", s.Snd.Width, "Playback sample width in bytes")
	fs.IntVar(&s.Snd.Channels, "snd-channels", s.Snd.Channels, "Playback channel count")

	fs.StringVar(&s.Wake.URI, "wake-uri", s.Wake.URI, "Wake word peer URI")
	fs.Var(commandString{&s.Wake.Command}, "wake-command", "Wake word peer command")
	fs.StringArrayVar(&s.Wake.Names, "wake-word-name", s.Wake.Names, "Wake word name to bind, optionally \"name:pipeline\" (repeatable)")
	fs.Float64Var(&s.Wake.ReconnectSeconds, "wake-reconnect-seconds", s.Wake.ReconnectSeconds, "Seconds between wake reconnect attempts")
	fs.Float64Var(&s.Wake.RefractorySeconds, "wake-refractory-seconds", s.Wake.RefractorySeconds, "Seconds to ignore repeat detections of the same wake word (0 disables)")

	fs.BoolVar(&s.Vad.Enabled, "vad", s.Vad.Enabled, "Use local VAD to begin streaming before a wake word")
	fs.StringVar(&s.Vad.ModelPath, "vad-model", s.Vad.ModelPath, "Path to the Silero VAD ONNX model")
	fs.Float64Var(&s.Vad.Threshold, "vad-threshold", s.Vad.Threshold, "VAD speech probability threshold")
	fs.IntVar(&s.Vad.TriggerLevel, "vad-trigger-level", s.Vad.TriggerLevel, "Speech-count level required to trigger (each speech chunk adds one, each other chunk subtracts one)")
	fs.Float64Var(&s.Vad.BufferSeconds, "vad-buffer-seconds", s.Vad.BufferSeconds, "Seconds of pre-roll audio to buffer")
	fs.Float64Var(&s.Vad.WakeWordTimeout, "vad-wake-word-timeout", s.Vad.WakeWordTimeout, "Seconds after speech onset before ending a VAD-triggered stream")
	fs.BoolVar(&s.Vad.UseSegmenter, "vad-segmenter", s.Vad.UseSegmenter, "Use the voice command segmenter instead of a flat timeout")

	fs.StringVar(&s.Event.URI, "event-uri", s.Event.URI, "Event peer URI for observability events")
	fs.Var(commandString{&s.Event.Command}, "event-command", "Event peer command")
	fs.Float64Var(&s.Event.ReconnectSeconds, "event-reconnect-seconds", s.Event.ReconnectSeconds, "Seconds between event peer reconnect attempts")
	fs.StringSliceVar(&s.Event.StreamingStart, "streaming-start-command", s.Event.StreamingStart, "Command to run when streaming starts")
	fs.StringSliceVar(&s.Event.StreamingStop, "streaming-stop-command", s.Event.StreamingStop, "Command to run when streaming stops")
	fs.StringSliceVar(&s.Event.Detection, "detection-command", s.Event.Detection, "Command to run on wake word detection")
	fs.StringSliceVar(&s.Event.Error, "error-command", s.Event.Error, "Command to run on a pipeline error")

	fs.Var(invertedBool{&s.Zeroconf.Enabled}, "no-zeroconf", "Disable mDNS/DNS-SD advertisement")
	fs.Lookup("no-zeroconf").NoOptDefVal = "true"
	fs.StringVar(&s.Zeroconf.Name, "zeroconf-name", s.Zeroconf.Name, "Zeroconf service instance name")
	fs.StringVar(&s.Zeroconf.Host, "zeroconf-host", s.Zeroconf.Host, "Zeroconf advertised host")

	fs.Float64Var(&s.RestartTimeout, "restart-timeout", s.RestartTimeout, "Seconds to wait in the restarting state before the satellite starts again")
}

// commandString adapts pflag's string-only Var hook to split a
// space-separated --mic-command string into argv, matching the original
// project's command-as-list settings field without requiring callers to
// quote-join nested shell tokens for a dedicated flag type.
type commandString struct {
	dst *[]string
}

func (c commandString) String() string { return strings.Join(*c.dst, " ") }
func (c commandString) Set(v string) error {
	*c.dst = strings.Fields(v)
	return nil
}
func (c commandString) Type() string { return "command" }

// invertedBool backs --no-zeroconf: the flag's boolean meaning is the
// logical inverse of the field it targets, since Zeroconf.Enabled
// defaults to true (spec.md §6: zeroconf is on unless disabled).
type invertedBool struct {
	dst *bool
}

func (b invertedBool) String() string { return strconv.FormatBool(!*b.dst) }
func (b invertedBool) Set(v string) error {
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*b.dst = !parsed
	return nil
}
func (b invertedBool) Type() string { return "bool" }
