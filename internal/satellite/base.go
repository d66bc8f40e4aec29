package satellite

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fernwood-iot/satellite/internal/config"
	"github.com/fernwood-iot/satellite/internal/wyoming"
)

// Mode is implemented by each of the three streaming state machines
// (AlwaysStreaming, VadStreaming, WakeStreaming, spec.md §4.7). Base
// dispatches the mode-independent parts of the server/mic/wake event
// tables itself and defers everything mode-specific here.
type Mode interface {
	// HandleRunSatellite and HandlePauseSatellite implement a
	// run-satellite/pause-satellite event from the server.
	HandleRunSatellite(ctx context.Context)
	HandlePauseSatellite(ctx context.Context)

	// EventFromMic processes one mic audio-chunk after Base has applied
	// channel selection, volume, and DSP. processed is the post-DSP PCM.
	EventFromMic(ctx context.Context, ev wyoming.Event, processed []byte)

	// EventFromWake processes one event read from the wake peer.
	EventFromWake(ctx context.Context, ev wyoming.Event)

	// OnTranscriptOrError is called for both transcript and error events
	// from the server. VadStreaming and WakeStreaming return to waiting;
	// AlwaysStreaming keeps streaming.
	OnTranscriptOrError(ctx context.Context, ev wyoming.Event)

	// OnServerDisconnected resets the mode's FSM to its idle state.
	OnServerDisconnected(ctx context.Context)
}

// serverBinding is the single-owner (server_id, writer) pair from
// spec.md §3: the satellite writes to the server only while bound.
type serverBinding struct {
	mu       sync.Mutex
	id       string
	writer   eventWriter
	awaiting bool // awaiting-pong flag for the ping task
}

type eventWriter interface {
	Write(ev wyoming.Event) error
}

// Base is the shared machinery of all three streaming modes: lifecycle
// FSM, server channel with ping/pong keep-alive, trigger dispatch, and
// the pipeline request builder. Ported from
// original_source/wyoming_satellite/satellite.py's SatelliteBase.
type Base struct {
	Settings config.Satellite
	Logger   *log.Logger
	Triggers *Triggers

	Mic  *MicManager
	Snd  *SndManager
	Wake *WakeManager
	Evt  *EventManager

	state *stateBox

	binding serverBinding

	mu               sync.Mutex
	microphoneMuted  bool
	wakeBindings     []WakeWordBinding
	refractory       *refractoryMap
	mode             Mode
	cancelPingLoop   context.CancelFunc
}

// NewBase wires a Base from settings. SetMode must be called once before
// Run, since the mode is what actually interprets run-satellite/
// pause-satellite and mic/wake events.
func NewBase(settings config.Satellite, logger *log.Logger) *Base {
	b := &Base{
		Settings:   settings,
		Logger:     logger,
		state:      newStateBox(),
		refractory: newRefractoryMap(settings.Wake.RefractorySeconds),
	}
	return b
}

// SetMode installs the streaming mode. Must be called before Run.
func (b *Base) SetMode(m Mode) {
	b.mu.Lock()
	b.mode = m
	b.mu.Unlock()
}

// State returns the current lifecycle state.
func (b *Base) State() State {
	return b.state.Get()
}

// Run drives the lifecycle FSM (spec.md §4.6) until it reaches Stopped.
// Any unhandled error from the connect step while running moves the
// state to Restarting rather than propagating.
func (b *Base) Run(ctx context.Context) error {
	for {
		switch b.state.Get() {
		case NotStarted:
			b.state.Set(Starting)
			if err := b.start(ctx); err != nil {
				b.Logger.Error("start failed, restarting", "error", err)
				b.state.Set(Restarting)
				continue
			}
			b.state.Set(Started)
		case Started:
			select {
			case <-ctx.Done():
				b.state.Set(Stopping)
			default:
				b.state.Wait()
			}
		case Restarting:
			b.disconnectAll()
			select {
			case <-ctx.Done():
				b.state.Set(Stopping)
			case <-time.After(restartTimeout(b.Settings.RestartTimeout)):
				b.state.Set(NotStarted)
			}
		case Stopping:
			b.disconnectAll()
			b.state.Set(Stopped)
		case Stopped:
			return nil
		}
	}
}

func restartTimeout(seconds float64) time.Duration {
	if seconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(seconds * float64(time.Second))
}

func (b *Base) start(ctx context.Context) error {
	pingCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancelPingLoop = cancel
	b.mu.Unlock()
	go b.pingLoop(pingCtx)

	if b.Mic != nil {
		go b.Mic.Run(ctx, b)
	}
	if b.Snd != nil {
		go b.Snd.Run(ctx)
	}
	if b.Wake != nil {
		go b.Wake.Run(ctx, b)
	}
	if b.Evt != nil {
		go b.Evt.Run(ctx)
	}
	return nil
}

func (b *Base) disconnectAll() {
	b.mu.Lock()
	cancel := b.cancelPingLoop
	b.cancelPingLoop = nil
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	b.ClearServer()
	if b.Mic != nil {
		b.Mic.Close()
	}
	if b.Snd != nil {
		b.Snd.Close()
	}
	if b.Wake != nil {
		b.Wake.Close()
	}
	if b.Evt != nil {
		b.Evt.Close()
	}
}

// Stop requests a transition to Stopping. It returns at once and does not
// wait for Run to reach Stopped.
func (b *Base) Stop() {
	b.state.Set(Stopping)
}

// --- Server channel (spec.md §4.6 "Server channel") ---

// SetServer installs (id, writer) as the bound server unconditionally,
// matching the original's set_server: it always succeeds, even
// overwriting a previous binding (the event handler is responsible for
// refusing a second connection before calling this).
func (b *Base) SetServer(id string, w eventWriter) {
	b.binding.mu.Lock()
	b.binding.id = id
	b.binding.writer = w
	b.binding.mu.Unlock()

	b.Triggers.Fire(TriggerServerConnected, wyoming.Event{Type: wyoming.TypeSatelliteConnected})
	b.state.Set(b.state.Get()) // wake waiters so Run notices server activity promptly
}

// ServerID returns the currently bound server id, or "" if unbound.
func (b *Base) ServerID() string {
	b.binding.mu.Lock()
	defer b.binding.mu.Unlock()
	return b.binding.id
}

// ClearServer idempotently clears the server binding, firing
// satellite-disconnected at most once per actual clear.
func (b *Base) ClearServer() {
	b.binding.mu.Lock()
	wasBound := b.binding.id != ""
	b.binding.id = ""
	b.binding.writer = nil
	b.binding.mu.Unlock()

	if wasBound {
		b.Triggers.Fire(TriggerServerDisconnected, wyoming.Event{Type: wyoming.TypeSatelliteDisconnected})
		b.mu.Lock()
		mode := b.mode
		b.mu.Unlock()
		if mode != nil {
			mode.OnServerDisconnected(context.Background())
		}
	}
}

// EventToServer writes ev on the bound writer. A no-op when unbound
// (spec.md §8 invariant). Write failures clear the binding rather than
// propagate.
func (b *Base) EventToServer(ev wyoming.Event) {
	b.binding.mu.Lock()
	w := b.binding.writer
	b.binding.mu.Unlock()

	if w == nil {
		return
	}
	if err := w.Write(ev); err != nil {
		b.Logger.Warn("write to server failed, clearing binding", "error", err)
		b.ClearServer()
	}
}

// --- Keep-alive (spec.md §4.6 "Keep-alive") ---

func (b *Base) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if b.ServerID() == "" {
				continue
			}
			b.binding.mu.Lock()
			b.binding.awaiting = true
			b.binding.mu.Unlock()

			b.EventToServer(wyoming.NewPing(""))

			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
				b.binding.mu.Lock()
				stillAwaiting := b.binding.awaiting
				b.binding.mu.Unlock()
				if stillAwaiting {
					b.Logger.Warn("ping timed out, clearing server binding")
					b.ClearServer()
				}
			}
		}
	}
}

// OnPong clears the awaiting-pong flag, called from the server dispatch
// table on an incoming pong.
func (b *Base) OnPong() {
	b.binding.mu.Lock()
	b.binding.awaiting = false
	b.binding.mu.Unlock()
}

// --- Mute ---

// SetMicrophoneMuted toggles mute; while muted, EventFromMic drops all
// audio chunks before reaching the mode (spec.md §8 invariant).
func (b *Base) SetMicrophoneMuted(muted bool) {
	b.mu.Lock()
	b.microphoneMuted = muted
	b.mu.Unlock()
}

func (b *Base) microphoneMutedNow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.microphoneMuted
}

// MuteForDuration mutes the microphone for d, matching
// seconds_to_mute_after_awake_wav (spec.md §4.6).
func (b *Base) MuteForDuration(d time.Duration) {
	if d <= 0 {
		return
	}
	b.SetMicrophoneMuted(true)
	time.AfterFunc(d, func() { b.SetMicrophoneMuted(false) })
}

// --- Refractory ---

func (b *Base) refractoryAllow(name string) bool {
	return b.refractory.Allow(name, time.Now())
}

// --- Server event dispatch (spec.md §4.6 table) ---

// EventFromServer implements the mode-independent half of the server
// dispatch table; mode-specific cases (run-satellite, pause-satellite,
// transcript/error routing to the mode's FSM) are delegated to Mode.
func (b *Base) EventFromServer(ctx context.Context, ev wyoming.Event) {
	b.mu.Lock()
	mode := b.mode
	b.mu.Unlock()

	switch ev.Type {
	case wyoming.TypePing:
		b.EventToServer(wyoming.NewPong(wyoming.StringField(ev, "text")))
		return
	case wyoming.TypePong:
		b.OnPong()
		return
	case wyoming.TypeAudioChunk:
		b.forwardToSnd(ev, true)
		return
	case wyoming.TypeAudioStart:
		b.forwardToSnd(ev, true)
		b.Triggers.Fire(TriggerTtsStart, ev)
		return
	case wyoming.TypeAudioStop:
		b.forwardToSnd(ev, true)
		b.Triggers.Fire(TriggerTtsStop, ev)
		return
	case wyoming.TypeDetect:
		b.Triggers.Fire(TriggerDetect, ev)
		return
	case wyoming.TypeDetection:
		b.Triggers.Fire(TriggerDetection, ev)
		return
	case "voice-started":
		b.Triggers.Fire(TriggerSttStart, ev)
		return
	case "voice-stopped":
		b.Triggers.Fire(TriggerSttStop, ev)
		return
	case wyoming.TypeTranscript:
		b.Triggers.Fire(TriggerTranscript, ev)
		if mode != nil {
			mode.OnTranscriptOrError(ctx, ev)
		}
		return
	case wyoming.TypeSynthesize:
		b.Triggers.Fire(TriggerSynthesize, ev)
		return
	case wyoming.TypeError:
		b.Triggers.Fire(TriggerError, ev)
		if mode != nil {
			mode.OnTranscriptOrError(ctx, ev)
		}
		return
	case wyoming.TypeTimerStarted:
		b.Triggers.Fire(TriggerTimerStarted, ev)
		return
	case wyoming.TypeTimerUpdated:
		b.Triggers.Fire(TriggerTimerUpdated, ev)
		return
	case wyoming.TypeTimerCancelled:
		b.Triggers.Fire(TriggerTimerCancelled, ev)
		return
	case wyoming.TypeTimerFinished:
		b.Triggers.FireTimerFinished(ev)
		return
	case wyoming.TypeRunSatellite:
		if mode != nil {
			mode.HandleRunSatellite(ctx)
		}
		return
	case wyoming.TypePauseSatellite:
		if mode != nil {
			mode.HandlePauseSatellite(ctx)
		}
		return
	}

	// Unknown event types are still fanned out to the event peer
	// (spec.md §9 "Unknown types are preserved").
	if b.Evt != nil {
		b.Evt.Publish(ev)
	}
}

func (b *Base) forwardToSnd(ev wyoming.Event, isTTS bool) {
	if b.Snd == nil {
		return
	}
	b.Snd.Enqueue(SoundEvent{Event: ev, IsTTS: isTTS})
}

// EventFromMic delivers one already-processed mic audio-chunk (channel
// selection, volume, and DSP already applied by MicManager) to the mode,
// unless muted, in which case the chunk is dropped entirely (spec.md §8
// invariant: "microphone_muted ⇒ event_from_mic drops all audio chunks").
func (b *Base) EventFromMic(ctx context.Context, ev wyoming.Event, processed []byte) {
	if ev.Type != wyoming.TypeAudioChunk {
		return
	}
	if b.microphoneMutedNow() {
		return
	}

	b.mu.Lock()
	mode := b.mode
	b.mu.Unlock()
	if mode != nil {
		mode.EventFromMic(ctx, ev, processed)
	}
}

// EventFromWakeRaw delivers one event read from the wake peer to the
// mode (spec.md §4.7.3's event_from_wake).
func (b *Base) EventFromWakeRaw(ctx context.Context, ev wyoming.Event) {
	b.mu.Lock()
	mode := b.mode
	b.mu.Unlock()
	if mode != nil {
		mode.EventFromWake(ctx, ev)
	}
}

// WakeBindings returns the configured wake-word-to-pipeline bindings.
func (b *Base) WakeBindings() []WakeWordBinding {
	return b.wakeBindings
}

// SetWakeBindings installs the wake-word bindings parsed from
// --wake-word-name (spec.md §6).
func (b *Base) SetWakeBindings(bindings []WakeWordBinding) {
	b.wakeBindings = bindings
}
