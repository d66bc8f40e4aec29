package satellite

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fernwood-iot/satellite/internal/audio"
	"github.com/fernwood-iot/satellite/internal/wyoming"
)

// wakeState is WakeStreaming's two-state FSM (spec.md §4.7.3).
type wakeState int

const (
	wakeWaitingForWake wakeState = iota
	wakeStreaming
)

// WakeStreaming gates streaming on a detection from the wake peer: mic
// audio is forwarded to the wake peer while waiting, and to the server
// once a detection has arrived (spec.md §4.7.3).
type WakeStreaming struct {
	base        *Base
	wakeDebug    *audio.DebugRecorder
	sttDebug     *audio.DebugRecorder
	logger       *log.Logger

	mu                sync.Mutex
	state             wakeState
	paused            bool
	debugRecordingTs  time.Time
}

// NewWakeStreaming builds a WakeStreaming mode. wakeDebug/sttDebug may be
// the same *audio.DebugRecorder reused for both phases, or nil if debug
// recording is disabled.
func NewWakeStreaming(base *Base, wakeDebug, sttDebug *audio.DebugRecorder, logger *log.Logger) *WakeStreaming {
	return &WakeStreaming{base: base, wakeDebug: wakeDebug, sttDebug: sttDebug, logger: logger}
}

func (w *WakeStreaming) HandleRunSatellite(ctx context.Context) {
	w.mu.Lock()
	w.state = wakeWaitingForWake
	w.paused = false
	w.debugRecordingTs = time.Now()
	w.mu.Unlock()

	w.base.Wake.Send(wyoming.Event{Type: wyoming.TypeDetect, Data: map[string]any{"names": w.detectNames()}})
	if w.wakeDebug != nil {
		_ = w.wakeDebug.Start(nil, w.debugRecordingTs)
	}
}

// HandlePauseSatellite resets to waiting without resending Detect or
// restarting wake-debug recording (spec.md §9's resolved Open Question:
// Detect is resent on every return to waiting_for_wake except pause).
func (w *WakeStreaming) HandlePauseSatellite(ctx context.Context) {
	w.mu.Lock()
	wasStreaming := w.state == wakeStreaming
	w.state = wakeWaitingForWake
	w.paused = true
	w.mu.Unlock()

	if w.sttDebug != nil {
		_ = w.sttDebug.Stop()
	}
	if w.wakeDebug != nil {
		_ = w.wakeDebug.Stop()
	}
	if wasStreaming {
		w.base.Triggers.Fire(TriggerStreamingStop, wyoming.Event{Type: wyoming.TypeStreamingStopped})
	}
}

func (w *WakeStreaming) OnTranscriptOrError(ctx context.Context, ev wyoming.Event) {
	w.mu.Lock()
	w.state = wakeWaitingForWake
	w.debugRecordingTs = time.Now()
	w.mu.Unlock()

	if w.sttDebug != nil {
		_ = w.sttDebug.Stop()
	}
	w.base.Wake.Send(wyoming.Event{Type: wyoming.TypeDetect, Data: map[string]any{"names": w.detectNames()}})
	if w.wakeDebug != nil {
		_ = w.wakeDebug.Start(nil, w.debugRecordingTs)
	}
	w.base.Triggers.Fire(TriggerStreamingStop, wyoming.Event{Type: wyoming.TypeStreamingStopped})
}

func (w *WakeStreaming) OnServerDisconnected(ctx context.Context) {
	w.mu.Lock()
	w.state = wakeWaitingForWake
	w.mu.Unlock()
	if w.sttDebug != nil {
		_ = w.sttDebug.Stop()
	}
	if w.wakeDebug != nil {
		_ = w.wakeDebug.Stop()
	}
	w.base.Triggers.Fire(TriggerStreamingStop, wyoming.Event{Type: wyoming.TypeStreamingStopped})
}

func (w *WakeStreaming) EventFromMic(ctx context.Context, ev wyoming.Event, processed []byte) {
	w.mu.Lock()
	paused := w.paused
	state := w.state
	w.mu.Unlock()
	if paused {
		return
	}

	if state == wakeStreaming {
		if w.sttDebug != nil {
			_ = w.sttDebug.Write(processed)
		}
		w.base.EventToServer(ev)
		return
	}

	if w.wakeDebug != nil {
		_ = w.wakeDebug.Write(processed)
	}
	w.base.Wake.Send(ev)
}

func (w *WakeStreaming) EventFromWake(ctx context.Context, ev wyoming.Event) {
	if ev.Type != wyoming.TypeDetection {
		return
	}

	w.mu.Lock()
	if w.state != wakeWaitingForWake || w.base.ServerID() == "" {
		w.mu.Unlock()
		return
	}
	name := wyoming.StringField(ev, "name")
	if !w.base.refractoryAllow(name) {
		w.mu.Unlock()
		return
	}
	ts := time.Now()
	w.state = wakeStreaming
	w.debugRecordingTs = ts
	w.mu.Unlock()

	if w.wakeDebug != nil {
		_ = w.wakeDebug.Stop()
	}
	if w.sttDebug != nil {
		_ = w.sttDebug.Start(nil, ts)
	}

	w.base.EventToServer(ev)

	pipelineName := ResolvePipelineName(w.base.WakeBindings(), name)
	w.base.EventToServer(BuildRunPipeline(PipelineRequest{
		StartStage:   StageASR,
		EndStage:     w.endStage(),
		PipelineName: pipelineName,
	}))

	w.base.Triggers.Fire(TriggerDetection, ev)
	// The mute starts now and lasts SecondsToMuteAfterAwakeWav; it is not
	// extended by the time the awake WAV takes to play.
	if !w.base.Settings.Mic.NoMuteDuringAwakeWav {
		w.base.MuteForDuration(time.Duration(w.base.Settings.Mic.SecondsToMuteAfterAwakeWav * float64(time.Second)))
	}
	w.base.Triggers.Fire(TriggerStreamingStart, wyoming.Event{Type: wyoming.TypeStreamingStarted})
}

func (w *WakeStreaming) detectNames() []any {
	specs := w.base.Settings.Wake.Names
	out := make([]any, len(specs))
	for i, spec := range specs {
		name, _ := ParseWakeWordSpec(spec)
		out[i] = name
	}
	return out
}

func (w *WakeStreaming) endStage() string {
	if w.base.Snd != nil && w.base.Settings.Snd.Enabled() {
		return StageTTS
	}
	return StageHandle
}
