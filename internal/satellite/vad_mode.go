package satellite

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fernwood-iot/satellite/internal/audio"
	"github.com/fernwood-iot/satellite/internal/config"
	"github.com/fernwood-iot/satellite/internal/dsp"
	"github.com/fernwood-iot/satellite/internal/wyoming"
)

// vadState is VadStreaming's two-state FSM (spec.md §4.7.2).
type vadState int

const (
	vadWaiting vadState = iota
	vadStreaming
)

// VadStreaming gates streaming on a local VAD decision: mic audio is
// buffered in a pre-roll ring until speech is detected, then the
// pre-roll plus live audio is forwarded until a timeout or a
// transcript/error/pause ends the utterance (spec.md §4.7.2).
type VadStreaming struct {
	base      *Base
	vad       *dsp.VAD
	segmenter *dsp.Segmenter
	prebuffer *audio.Ring
	debug     *audio.DebugRecorder
	logger    *log.Logger

	wakeWordTimeout time.Duration
	chunkSeconds    float64

	mu              sync.Mutex
	state           vadState
	paused          bool
	timeoutDeadline time.Time
	hasDeadline     bool
}

// NewVadStreaming builds a VadStreaming mode. segmenter and debug may be
// nil (segmenter refinement and debug recording are both optional).
func NewVadStreaming(base *Base, vad *dsp.VAD, segmenter *dsp.Segmenter, vadSettings config.Vad, micSettings config.Mic, debug *audio.DebugRecorder, logger *log.Logger) *VadStreaming {
	var prebuffer *audio.Ring
	if vadSettings.BufferSeconds > 0 {
		bytesPerSecond := micSettings.Rate * micSettings.Width
		prebuffer = audio.NewRing(int(vadSettings.BufferSeconds * float64(bytesPerSecond)))
	}
	chunkSeconds := 0.0
	if micSettings.Rate > 0 {
		chunkSeconds = float64(micSettings.SamplesPerChunk) / float64(micSettings.Rate)
	}
	return &VadStreaming{
		base:            base,
		vad:             vad,
		segmenter:       segmenter,
		prebuffer:       prebuffer,
		debug:           debug,
		logger:          logger,
		wakeWordTimeout: time.Duration(vadSettings.WakeWordTimeout * float64(time.Second)),
		chunkSeconds:    chunkSeconds,
	}
}

func (v *VadStreaming) HandleRunSatellite(ctx context.Context) {
	v.mu.Lock()
	v.state = vadWaiting
	v.paused = false
	v.mu.Unlock()
	v.logger.Info("waiting for speech")
}

// HandlePauseSatellite resets to waiting unconditionally and suppresses
// mic events until the next run-satellite, regardless of timeout state
// (spec.md §9: resolves the source ambiguity in favor of always
// resetting on pause).
func (v *VadStreaming) HandlePauseSatellite(ctx context.Context) {
	v.mu.Lock()
	wasStreaming := v.state == vadStreaming
	v.state = vadWaiting
	v.paused = true
	v.hasDeadline = false
	v.mu.Unlock()

	if v.segmenter != nil {
		v.segmenter.Reset()
	}
	if v.debug != nil {
		_ = v.debug.Stop()
	}
	if wasStreaming {
		v.base.Triggers.Fire(TriggerStreamingStop, wyoming.Event{Type: wyoming.TypeStreamingStopped})
	}
}

func (v *VadStreaming) OnTranscriptOrError(ctx context.Context, ev wyoming.Event) {
	v.mu.Lock()
	wasStreaming := v.state == vadStreaming
	v.state = vadWaiting
	v.hasDeadline = false
	v.mu.Unlock()

	if v.segmenter != nil {
		v.segmenter.Reset()
	}
	if v.debug != nil {
		_ = v.debug.Stop()
	}
	if wasStreaming {
		v.base.Triggers.Fire(TriggerStreamingStop, wyoming.Event{Type: wyoming.TypeStreamingStopped})
	}
}

func (v *VadStreaming) OnServerDisconnected(ctx context.Context) {
	v.mu.Lock()
	v.state = vadWaiting
	v.hasDeadline = false
	v.mu.Unlock()
	if v.segmenter != nil {
		v.segmenter.Reset()
	}
	if v.debug != nil {
		_ = v.debug.Stop()
	}
}

func (v *VadStreaming) EventFromMic(ctx context.Context, ev wyoming.Event, processed []byte) {
	v.mu.Lock()
	if v.paused {
		v.mu.Unlock()
		return
	}
	state := v.state
	deadline := v.timeoutDeadline
	hasDeadline := v.hasDeadline
	v.mu.Unlock()

	if state == vadStreaming && hasDeadline && time.Now().After(deadline) {
		v.endUtterance()
		state = vadWaiting
	}

	switch state {
	case vadWaiting:
		isSpeech, err := v.vad.IsSpeech(processed)
		if err != nil {
			v.logger.Warn("vad scoring failed", "error", err)
			return
		}
		if v.segmenter != nil {
			isSpeech = v.segmenter.Process(v.chunkSeconds, isSpeech)
		}
		if isSpeech {
			v.startUtterance(ev, processed)
			return
		}
		if v.prebuffer != nil {
			v.prebuffer.Write(processed)
		}
	case vadStreaming:
		if v.debug != nil {
			_ = v.debug.Write(processed)
		}
		v.base.EventToServer(ev)
	}
}

func (v *VadStreaming) EventFromWake(ctx context.Context, ev wyoming.Event) {
	// VadStreaming has no wake peer to service.
}

func (v *VadStreaming) startUtterance(ev wyoming.Event, processed []byte) {
	v.mu.Lock()
	v.state = vadStreaming
	if v.wakeWordTimeout > 0 {
		v.timeoutDeadline = time.Now().Add(v.wakeWordTimeout)
		v.hasDeadline = true
	} else {
		v.hasDeadline = false
	}
	v.mu.Unlock()

	v.base.EventToServer(BuildRunPipeline(PipelineRequest{
		StartStage: StageWake,
		EndStage:   v.endStage(),
	}))
	v.base.Triggers.Fire(TriggerStreamingStart, wyoming.Event{Type: wyoming.TypeStreamingStarted})

	if v.prebuffer != nil {
		preroll := v.prebuffer.Bytes()
		v.prebuffer.Clear()
		if v.debug != nil {
			_ = v.debug.Start(preroll, time.Now())
		}
		if len(preroll) > 0 {
			format := wyoming.AudioFormatOf(ev)
			v.base.EventToServer(wyoming.NewAudioChunk(format, wyoming.TimestampMsOf(ev), preroll))
		}
	} else if v.debug != nil {
		_ = v.debug.Start(nil, time.Now())
	}

	if v.debug != nil {
		_ = v.debug.Write(processed)
	}
	v.base.EventToServer(ev)

	if err := v.vad.Reset(); err != nil {
		v.logger.Warn("vad reset failed", "error", err)
	}
}

func (v *VadStreaming) endUtterance() {
	v.mu.Lock()
	v.state = vadWaiting
	v.hasDeadline = false
	v.mu.Unlock()

	v.base.EventToServer(wyoming.Event{Type: wyoming.TypeAudioStop})
	v.base.Triggers.Fire(TriggerStreamingStop, wyoming.Event{Type: wyoming.TypeStreamingStopped})
	if v.debug != nil {
		_ = v.debug.Stop()
	}
}

func (v *VadStreaming) endStage() string {
	if v.base.Snd != nil && v.base.Settings.Snd.Enabled() {
		return StageTTS
	}
	return StageHandle
}
