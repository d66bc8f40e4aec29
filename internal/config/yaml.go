package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileSchema mirrors the CLI flag groups 1:1 (SPEC_FULL.md §3 "Settings
// file schema"), so a --config file and flags can be merged key-by-key
// onto the same Satellite tree.
type fileSchema struct {
	Name     string        `yaml:"name"`
	Area     string        `yaml:"area"`
	Server   string        `yaml:"server_uri"`
	Mic      *fileMic      `yaml:"mic"`
	Vad      *fileVad      `yaml:"vad"`
	Wake     *fileWake     `yaml:"wake"`
	Snd      *fileSnd      `yaml:"snd"`
	Event    *fileEvent    `yaml:"event"`
	Zeroconf *fileZeroconf `yaml:"zeroconf"`
	Restart  *float64      `yaml:"restart_timeout"`
	Debug    *bool         `yaml:"debug"`
	LogFmt   string        `yaml:"log_format"`
	DebugDir string        `yaml:"debug_recording_dir"`
}

type fileService struct {
	URI              string   `yaml:"uri"`
	Command          []string `yaml:"command"`
	ReconnectSeconds *float64 `yaml:"reconnect_seconds"`
}

type fileMic struct {
	fileService      `yaml:",inline"`
	VolumeMultiplier *float64 `yaml:"volume_multiplier"`
	AutoGain         *int     `yaml:"auto_gain"`
	NoiseSuppression *int     `yaml:"noise_suppression"`
	Rate             *int     `yaml:"rate"`
	Width            *int     `yaml:"width"`
	Channels         *int     `yaml:"channels"`
	SamplesPerChunk  *int     `yaml:"samples_per_chunk"`
	ChannelIndex     *int     `yaml:"channel_index"`
	NoMuteDuringAwakeWav       *bool    `yaml:"no_mute_during_awake_wav"`
	SecondsToMuteAfterAwakeWav *float64 `yaml:"seconds_to_mute_after_awake_wav"`
}

type fileSnd struct {
	fileService         `yaml:",inline"`
	VolumeMultiplier    *float64 `yaml:"volume_multiplier"`
	AwakeWav            string   `yaml:"awake_wav"`
	DoneWav             string   `yaml:"done_wav"`
	TimerFinishedWav    string   `yaml:"timer_finished_wav"`
	TimerFinishedRepeat *int     `yaml:"timer_finished_wav_repeat_times"`
	TimerFinishedDelay  *float64 `yaml:"timer_finished_wav_repeat_delay"`
	Rate                *int     `yaml:"rate"`
	Width               *int     `yaml:"width"`
	Channels            *int     `yaml:"channels"`
	SamplesPerChunk     *int     `yaml:"samples_per_chunk"`
}

type fileWake struct {
	fileService       `yaml:",inline"`
	Names             []string `yaml:"names"`
	Rate              *int     `yaml:"rate"`
	Width             *int     `yaml:"width"`
	Channels          *int     `yaml:"channels"`
	RefractorySeconds *float64 `yaml:"refractory_seconds"`
}

type fileVad struct {
	Enabled         *bool    `yaml:"enabled"`
	ModelPath       string   `yaml:"model_path"`
	Threshold       *float64 `yaml:"threshold"`
	TriggerLevel    *int     `yaml:"trigger_level"`
	BufferSeconds   *float64 `yaml:"buffer_seconds"`
	WakeWordTimeout *float64 `yaml:"wake_word_timeout"`
	UseSegmenter    *bool    `yaml:"use_segmenter"`
}

type fileEvent struct {
	fileService    `yaml:",inline"`
	Startup        []string `yaml:"startup"`
	StreamingStart []string `yaml:"streaming_start"`
	StreamingStop  []string `yaml:"streaming_stop"`
	Detect         []string `yaml:"detect"`
	Detection      []string `yaml:"detection"`
	Transcript     []string `yaml:"transcript"`
	SttStart       []string `yaml:"stt_start"`
	SttStop        []string `yaml:"stt_stop"`
	Synthesize     []string `yaml:"synthesize"`
	TtsStart       []string `yaml:"tts_start"`
	TtsStop        []string `yaml:"tts_stop"`
	Error          []string `yaml:"error"`
}

type fileZeroconf struct {
	Enabled *bool  `yaml:"enabled"`
	Name    string `yaml:"name"`
	Host    string `yaml:"host"`
}

// LoadYAML reads path and applies every key it sets onto s, leaving
// fields the file doesn't mention untouched (so callers can load a file
// over Defaults() and then overlay flags on top, per SPEC_FULL.md §4.10).
func LoadYAML(path string, s *Satellite) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var doc fileSchema
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if doc.Name != "" {
		s.Name = doc.Name
	}
	if doc.Area != "" {
		s.Area = doc.Area
	}
	if doc.Server != "" {
		s.ServerURI = doc.Server
	}
	if doc.Restart != nil {
		s.RestartTimeout = *doc.Restart
	}
	if doc.Debug != nil {
		s.LogDebug = *doc.Debug
	}
	if doc.LogFmt != "" {
		s.LogFormat = doc.LogFmt
	}
	if doc.DebugDir != "" {
		s.DebugRecordingDir = doc.DebugDir
	}

	if doc.Mic != nil {
		applyServiceFields(&s.Mic.Service, doc.Mic.fileService)
		applyFloat(&s.Mic.VolumeMultiplier, doc.Mic.VolumeMultiplier)
		applyInt(&s.Mic.AutoGain, doc.Mic.AutoGain)
		applyInt(&s.Mic.NoiseSuppression, doc.Mic.NoiseSuppression)
		applyInt(&s.Mic.Rate, doc.Mic.Rate)
		applyInt(&s.Mic.Width, doc.Mic.Width)
		applyInt(&s.Mic.Channels, doc.Mic.Channels)
		applyInt(&s.Mic.SamplesPerChunk, doc.Mic.SamplesPerChunk)
		applyInt(&s.Mic.ChannelIndex, doc.Mic.ChannelIndex)
		if doc.Mic.NoMuteDuringAwakeWav != nil {
			s.Mic.NoMuteDuringAwakeWav = *doc.Mic.NoMuteDuringAwakeWav
		}
		applyFloat(&s.Mic.SecondsToMuteAfterAwakeWav, doc.Mic.SecondsToMuteAfterAwakeWav)
	}
	if doc.Snd != nil {
		applyServiceFields(&s.Snd.Service, doc.Snd.fileService)
		applyFloat(&s.Snd.VolumeMultiplier, doc.Snd.VolumeMultiplier)
		if doc.Snd.AwakeWav != "" {
			s.Snd.AwakeWav = doc.Snd.AwakeWav
		}
		if doc.Snd.DoneWav != "" {
			s.Snd.DoneWav = doc.Snd.DoneWav
		}
		if doc.Snd.TimerFinishedWav != "" {
			s.Snd.TimerFinishedWav = doc.Snd.TimerFinishedWav
		}
		applyInt(&s.Snd.TimerFinishedRepeat, doc.Snd.TimerFinishedRepeat)
		applyFloat(&s.Snd.TimerFinishedDelay, doc.Snd.TimerFinishedDelay)
		applyInt(&s.Snd.Rate, doc.Snd.Rate)
		applyInt(&s.Snd.Width, doc.Snd.Width)
		applyInt(&s.Snd.Channels, doc.Snd.Channels)
		applyInt(&s.Snd.SamplesPerChunk, doc.Snd.SamplesPerChunk)
	}
	if doc.Wake != nil {
		applyServiceFields(&s.Wake.Service, doc.Wake.fileService)
		if len(doc.Wake.Names) > 0 {
			s.Wake.Names = doc.Wake.Names
		}
		applyInt(&s.Wake.Rate, doc.Wake.Rate)
		applyInt(&s.Wake.Width, doc.Wake.Width)
		applyInt(&s.Wake.Channels, doc.Wake.Channels)
		applyFloat(&s.Wake.RefractorySeconds, doc.Wake.RefractorySeconds)
	}
	if doc.Vad != nil {
		if doc.Vad.Enabled != nil {
			s.Vad.Enabled = *doc.Vad.Enabled
		}
		if doc.Vad.ModelPath != "" {
			s.Vad.ModelPath = doc.Vad.ModelPath
		}
		applyFloat(&s.Vad.Threshold, doc.Vad.Threshold)
		applyInt(&s.Vad.TriggerLevel, doc.Vad.TriggerLevel)
		applyFloat(&s.Vad.BufferSeconds, doc.Vad.BufferSeconds)
		applyFloat(&s.Vad.WakeWordTimeout, doc.Vad.WakeWordTimeout)
		if doc.Vad.UseSegmenter != nil {
			s.Vad.UseSegmenter = *doc.Vad.UseSegmenter
		}
	}
	if doc.Event != nil {
		applyServiceFields(&s.Event.Service, doc.Event.fileService)
		applyStrings(&s.Event.Startup, doc.Event.Startup)
		applyStrings(&s.Event.StreamingStart, doc.Event.StreamingStart)
		applyStrings(&s.Event.StreamingStop, doc.Event.StreamingStop)
		applyStrings(&s.Event.Detect, doc.Event.Detect)
		applyStrings(&s.Event.Detection, doc.Event.Detection)
		applyStrings(&s.Event.Transcript, doc.Event.Transcript)
		applyStrings(&s.Event.SttStart, doc.Event.SttStart)
		applyStrings(&s.Event.SttStop, doc.Event.SttStop)
		applyStrings(&s.Event.Synthesize, doc.Event.Synthesize)
		applyStrings(&s.Event.TtsStart, doc.Event.TtsStart)
		applyStrings(&s.Event.TtsStop, doc.Event.TtsStop)
		applyStrings(&s.Event.Error, doc.Event.Error)
	}
	if doc.Zeroconf != nil {
		if doc.Zeroconf.Enabled != nil {
			s.Zeroconf.Enabled = *doc.Zeroconf.Enabled
		}
		if doc.Zeroconf.Name != "" {
			s.Zeroconf.Name = doc.Zeroconf.Name
		}
		if doc.Zeroconf.Host != "" {
			s.Zeroconf.Host = doc.Zeroconf.Host
		}
	}

	return nil
}

func applyServiceFields(dst *Service, fs fileService) {
	if fs.URI != "" {
		dst.URI = fs.URI
	}
	if len(fs.Command) > 0 {
		dst.Command = fs.Command
	}
	applyFloat(&dst.ReconnectSeconds, fs.ReconnectSeconds)
}

func applyFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func applyInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func applyStrings(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}
