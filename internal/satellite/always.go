package satellite

import (
	"context"
	"sync"

	"github.com/fernwood-iot/satellite/internal/audio"
	"github.com/fernwood-iot/satellite/internal/wyoming"
)

// alwaysState is AlwaysStreaming's two-state FSM (spec.md §4.7.1).
type alwaysState int

const (
	alwaysIdle alwaysState = iota
	alwaysStreaming
)

// AlwaysStreaming is the simplest streaming mode: once told to run, it
// forwards every mic chunk to the server until paused, with no local
// gating (spec.md §4.7.1).
type AlwaysStreaming struct {
	base  *Base
	debug *audio.DebugRecorder

	mu    sync.Mutex
	state alwaysState
}

// NewAlwaysStreaming builds an AlwaysStreaming mode. debug may be nil
// (debug recording disabled).
func NewAlwaysStreaming(base *Base, debug *audio.DebugRecorder) *AlwaysStreaming {
	return &AlwaysStreaming{base: base, debug: debug}
}

func (a *AlwaysStreaming) HandleRunSatellite(ctx context.Context) {
	a.mu.Lock()
	a.state = alwaysStreaming
	a.mu.Unlock()

	a.base.EventToServer(BuildRunPipeline(PipelineRequest{
		StartStage:   StageWake,
		EndStage:     a.endStage(),
		RestartOnEnd: true,
	}))
	a.base.Triggers.Fire(TriggerStreamingStart, wyoming.Event{Type: wyoming.TypeStreamingStarted})
}

func (a *AlwaysStreaming) HandlePauseSatellite(ctx context.Context) {
	a.mu.Lock()
	a.state = alwaysIdle
	a.mu.Unlock()
	if a.debug != nil {
		_ = a.debug.Stop()
	}
}

// OnTranscriptOrError stays streaming but re-fires streaming_start so
// observer UIs can re-flash (spec.md §9's preserved quirk).
func (a *AlwaysStreaming) OnTranscriptOrError(ctx context.Context, ev wyoming.Event) {
	a.mu.Lock()
	streaming := a.state == alwaysStreaming
	a.mu.Unlock()
	if streaming {
		a.base.Triggers.Fire(TriggerStreamingStart, wyoming.Event{Type: wyoming.TypeStreamingStarted})
	}
}

func (a *AlwaysStreaming) OnServerDisconnected(ctx context.Context) {
	a.mu.Lock()
	a.state = alwaysIdle
	a.mu.Unlock()
	if a.debug != nil {
		_ = a.debug.Stop()
	}
}

func (a *AlwaysStreaming) EventFromMic(ctx context.Context, ev wyoming.Event, processed []byte) {
	a.mu.Lock()
	streaming := a.state == alwaysStreaming
	a.mu.Unlock()
	if !streaming {
		return
	}
	if a.debug != nil {
		_ = a.debug.Write(processed)
	}
	a.base.EventToServer(ev)
}

func (a *AlwaysStreaming) EventFromWake(ctx context.Context, ev wyoming.Event) {
	// AlwaysStreaming never forwards mic audio to a wake peer.
}

func (a *AlwaysStreaming) endStage() string {
	if a.base.Snd != nil && a.base.Settings.Snd.Enabled() {
		return StageTTS
	}
	return StageHandle
}
