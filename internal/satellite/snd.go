package satellite

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fernwood-iot/satellite/internal/audio"
	"github.com/fernwood-iot/satellite/internal/config"
	"github.com/fernwood-iot/satellite/internal/peer"
	"github.com/fernwood-iot/satellite/internal/wyoming"
)

// SoundEvent pairs an outbound snd event with whether it belongs to a
// TTS utterance or a locally-generated cue (spec.md §3 "SoundEvent"), so
// the snd task can distinguish trigger_played's TTS-completion semantics
// from plain cue playback.
type SoundEvent struct {
	Event wyoming.Event
	IsTTS bool
}

// SndManager is the snd peer task (spec.md §4.5 "Snd task"): an
// internal queue drained sequentially, connecting lazily on first use.
type SndManager struct {
	managed  *peer.Managed
	settings config.Snd
	queue    chan SoundEvent
	triggers *Triggers
	logger   *log.Logger

	connected bool
}

// NewSndManager builds a SndManager. queueDepth bounds the outbound
// queue (unbounded in the original; spec.md §5 calls it "unbounded but
// expected to be shallow" - a large bound approximates that without
// risking unbounded memory under a genuinely stuck sink).
func NewSndManager(dial peer.Dialer, settings config.Snd, triggers *Triggers, logger *log.Logger) *SndManager {
	return &SndManager{
		managed:  peer.NewManaged(dial, time.Duration(settings.ReconnectSeconds*float64(time.Second))),
		settings: settings,
		queue:    make(chan SoundEvent, 4096),
		triggers: triggers,
		logger:   logger,
	}
}

// Enqueue adds ev to the outbound queue. A no-op if snd is disabled.
func (s *SndManager) Enqueue(ev SoundEvent) {
	if !s.settings.Enabled() {
		return
	}
	select {
	case s.queue <- ev:
	default:
		s.logger.Warn("snd queue full, dropping event", "type", ev.Event.Type)
	}
}

// Run drains the queue until ctx is cancelled.
func (s *SndManager) Run(ctx context.Context) {
	if !s.settings.Enabled() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.queue:
			s.handle(ctx, ev)
		}
	}
}

func (s *SndManager) handle(ctx context.Context, ev SoundEvent) {
	if !s.connected {
		if err := s.managed.Connect(ctx); err != nil {
			return
		}
		s.connected = true
	}

	out := ev.Event
	if ev.Event.Type == wyoming.TypeAudioChunk && s.settings.VolumeMultiplier != 1.0 {
		pcm := audio.MultiplyVolume(ev.Event.Payload, s.settings.VolumeMultiplier)
		out = wyoming.NewAudioChunk(wyoming.AudioFormatOf(ev.Event), wyoming.TimestampMsOf(ev.Event), pcm)
	}

	if err := s.managed.Send(out); err != nil {
		s.logger.Warn("snd peer write failed, reconnecting", "error", err)
		s.connected = false
		return
	}

	if ev.Event.Type == wyoming.TypeAudioStop {
		// disconnect_after_stop: release the device after every stop so
		// an aplay-style child can exit cleanly (spec.md §4.5).
		_ = s.managed.Close()
		s.connected = false
		if ev.IsTTS {
			s.triggers.Fire(TriggerPlayed, wyoming.Event{Type: wyoming.TypePlayed})
		}
	}
}

// Close tears down the snd peer connection.
func (s *SndManager) Close() {
	_ = s.managed.Close()
	s.connected = false
}
