package satellite_test

import (
	"context"
	"sync"

	"github.com/fernwood-iot/satellite/internal/wyoming"
)

// fakeWriter records every event written to it, standing in for the
// server connection in tests that exercise Base.EventToServer without a
// real socket.
type fakeWriter struct {
	mu     sync.Mutex
	events []wyoming.Event
}

func (f *fakeWriter) Write(ev wyoming.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeWriter) snapshot() []wyoming.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]wyoming.Event, len(f.events))
	copy(out, f.events)
	return out
}

// noopMode is a minimal satellite.Mode that does nothing, for lifecycle
// tests that only care about Base's FSM and don't exercise mode behavior.
type noopMode struct{}

func (noopMode) HandleRunSatellite(ctx context.Context)                          {}
func (noopMode) HandlePauseSatellite(ctx context.Context)                        {}
func (noopMode) EventFromMic(ctx context.Context, ev wyoming.Event, processed []byte) {}
func (noopMode) EventFromWake(ctx context.Context, ev wyoming.Event)             {}
func (noopMode) OnTranscriptOrError(ctx context.Context, ev wyoming.Event)       {}
func (noopMode) OnServerDisconnected(ctx context.Context)                        {}
