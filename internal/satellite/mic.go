package satellite

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fernwood-iot/satellite/internal/audio"
	"github.com/fernwood-iot/satellite/internal/config"
	"github.com/fernwood-iot/satellite/internal/dsp"
	"github.com/fernwood-iot/satellite/internal/peer"
	"github.com/fernwood-iot/satellite/internal/wyoming"
)

// MicManager is the mic peer task (spec.md §4.5 "Mic task"): connect,
// read audio-chunk events, apply channel selection/volume/DSP, and hand
// the result to the satellite via Base.EventFromMic.
type MicManager struct {
	managed     *peer.Managed
	settings    config.Mic
	channelIdx  int // -1 means "no channel selection"
	denoiser    *dsp.Denoiser
	logger      *log.Logger
}

// NewMicManager builds a MicManager from mic settings. channelIdx < 0
// disables the deinterleave step.
func NewMicManager(dial peer.Dialer, settings config.Mic, channelIdx int, logger *log.Logger) *MicManager {
	m := &MicManager{
		managed:    peer.NewManaged(dial, time.Duration(settings.ReconnectSeconds*float64(time.Second))),
		settings:   settings,
		channelIdx: channelIdx,
		logger:     logger,
	}
	if settings.NeedsWebrtc() {
		m.denoiser = dsp.NewDenoiser(settings.Rate)
	}
	return m
}

// Run connects and processes mic events until ctx is cancelled,
// reconnecting on any read error exactly as spec.md §4.5 describes: close
// client, sleep reconnect_seconds, loop.
func (m *MicManager) Run(ctx context.Context, base *Base) {
	if !m.settings.Enabled() {
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}
		if err := m.managed.Connect(ctx); err != nil {
			return
		}

		for {
			ev, err := m.managed.Recv()
			if err != nil {
				m.logger.Warn("mic peer read failed, reconnecting", "error", err)
				break
			}
			if ev.Type != wyoming.TypeAudioChunk {
				continue
			}
			m.process(ctx, base, ev)
		}

		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay(m.settings.ReconnectSeconds)):
		}
	}
}

func (m *MicManager) process(ctx context.Context, base *Base, ev wyoming.Event) {
	pcm := ev.Payload
	format := wyoming.AudioFormatOf(ev)

	if m.channelIdx >= 0 && m.settings.Channels > 1 {
		pcm = deinterleaveChannel(pcm, m.channelIdx, m.settings.Channels)
		format.Channels = 1
	}
	if m.settings.VolumeMultiplier != 1.0 {
		pcm = audio.MultiplyVolume(pcm, m.settings.VolumeMultiplier)
	}
	if m.denoiser != nil {
		pcm = m.denoiser.Process(pcm)
	}

	out := wyoming.NewAudioChunk(format, wyoming.TimestampMsOf(ev), pcm)
	base.EventFromMic(ctx, out, pcm)
}

// deinterleaveChannel picks channel idx out of 16-bit interleaved PCM
// with the given channel count, rebuilding it as mono (spec.md §4.5 step
// 1; requires width==2).
func deinterleaveChannel(pcm []byte, idx, channels int) []byte {
	const sampleBytes = 2
	stride := sampleBytes * channels
	out := make([]byte, 0, len(pcm)/channels)
	for off := idx * sampleBytes; off+sampleBytes <= len(pcm); off += stride {
		out = append(out, pcm[off], pcm[off+1])
	}
	return out
}

func reconnectDelay(seconds float64) time.Duration {
	if seconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(seconds * float64(time.Second))
}

// Close tears down the mic peer connection.
func (m *MicManager) Close() {
	_ = m.managed.Close()
}
