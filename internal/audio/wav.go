package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/fernwood-iot/satellite/internal/wyoming"
)

// WavToEvents loads a WAV file (used for the awake/done cue sounds, §4.3)
// and returns the audio-start/audio-chunk/audio-stop event sequence a snd
// peer needs to play it, mirroring
// original_source/wyoming_satellite/utils.py's wav_to_events. Decoding uses
// github.com/go-audio/wav rather than hand-rolling RIFF parsing.
func WavToEvents(path string, samplesPerChunk int, volumeMultiplier float64) ([]wyoming.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("audio: %s is not a valid WAV file", path)
	}
	dec.ReadInfo()

	format := wyoming.AudioFormat{
		Rate:     int(dec.SampleRate),
		Width:    int(dec.BitDepth) / 8,
		Channels: int(dec.NumChans),
	}
	bytesPerSample := format.Width * format.Channels

	var events []wyoming.Event
	var timestampMs int64
	events = append(events, wyoming.NewAudioStart(format, timestampMs))

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{SampleRate: int(dec.SampleRate), NumChannels: int(dec.NumChans)},
		SourceBitDepth: int(dec.BitDepth),
		Data:           make([]int, samplesPerChunk*format.Channels),
	}

	for {
		n, readErr := dec.PCMBuffer(buf)
		if n == 0 || readErr != nil {
			if readErr != nil {
				return nil, fmt.Errorf("audio: decode %s: %w", path, readErr)
			}
			break
		}

		pcm := intSamplesToPCM16(buf.Data[:n])
		if volumeMultiplier != 1.0 {
			pcm = MultiplyVolume(pcm, volumeMultiplier)
		}

		events = append(events, wyoming.NewAudioChunk(format, timestampMs, pcm))

		samples := n / format.Channels
		if bytesPerSample > 0 {
			timestampMs += int64(samples) * 1000 / int64(format.Rate)
		}

		if n < len(buf.Data) {
			break
		}
	}

	events = append(events, wyoming.NewAudioStop(timestampMs))
	return events, nil
}

// intSamplesToPCM16 packs decoded int samples (already scaled to the
// source bit depth by go-audio/wav) into little-endian 16-bit PCM bytes.
// The WAV cue files used by this project (§4.3) are always 16-bit.
func intSamplesToPCM16(samples []int) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := uint16(int16(s))
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}
