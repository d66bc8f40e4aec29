package satellite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernwood-iot/satellite/internal/config"
	"github.com/fernwood-iot/satellite/internal/logging"
	"github.com/fernwood-iot/satellite/internal/peer"
	"github.com/fernwood-iot/satellite/internal/satellite"
	"github.com/fernwood-iot/satellite/internal/wyoming"
)

func newTestBaseWithWake(t *testing.T, wakeSettings config.Wake) *satellite.Base {
	t.Helper()
	logger := logging.New(logging.Options{})
	base := satellite.NewBase(config.Satellite{RestartTimeout: 0.2, Wake: wakeSettings}, logger)
	base.Triggers = satellite.NewTriggers(nil, nil, logger)
	bindings := make([]satellite.WakeWordBinding, 0, len(wakeSettings.Names))
	for _, spec := range wakeSettings.Names {
		name, pipeline := satellite.ParseWakeWordSpec(spec)
		bindings = append(bindings, satellite.WakeWordBinding{Name: name, Pipeline: pipeline})
	}
	base.SetWakeBindings(bindings)
	dial :=peer.Dialer(func(ctx context.Context) (peer.Client, error) {
		return nil, context.Canceled
	})
	base.Wake = satellite.NewWakeManager(dial, wakeSettings, logger)
	return base
}

func TestWakeStreamingForwardsMicToWakeWhileWaiting(t *testing.T) {
	base := newTestBaseWithWake(t, config.Wake{Service: config.Service{URI: "tcp://127.0.0.1:1"}, Names: []string{"ok_nabu"}})
	w := &fakeWriter{}
	base.SetServer("srv", w)

	mode := satellite.NewWakeStreaming(base, nil, nil, logging.New(logging.Options{}))
	base.SetMode(mode)
	mode.HandleRunSatellite(context.Background())

	chunk := wyoming.NewAudioChunk(wyoming.AudioFormat{Rate: 16000, Width: 2, Channels: 1}, 0, []byte{1, 2})
	mode.EventFromMic(context.Background(), chunk, chunk.Payload)

	// Not forwarded to the server while waiting for a detection.
	assert.Empty(t, w.snapshot())
}

func TestWakeStreamingDetectionStartsStreaming(t *testing.T) {
	base := newTestBaseWithWake(t, config.Wake{
		Service:           config.Service{URI: "tcp://127.0.0.1:1"},
		Names:             []string{"ok_nabu:kitchen"},
		RefractorySeconds: 0,
	})
	w := &fakeWriter{}
	base.SetServer("srv", w)

	mode := satellite.NewWakeStreaming(base, nil, nil, logging.New(logging.Options{}))
	base.SetMode(mode)
	mode.HandleRunSatellite(context.Background())

	mode.EventFromWake(context.Background(), wyoming.Event{Type: wyoming.TypeDetection, Data: map[string]any{"name": "ok_nabu"}})

	events := w.snapshot()
	require.Len(t, events, 2, "expect the detection forwarded, then a run-pipeline")
	assert.Equal(t, wyoming.TypeDetection, events[0].Type)
	assert.Equal(t, wyoming.TypeRunPipeline, events[1].Type)
	assert.Equal(t, satellite.StageASR, events[1].Data["start_stage"])
	assert.Equal(t, "kitchen", events[1].Data["name"])

	// Mic audio is now forwarded to the server, not the wake peer.
	chunk := wyoming.NewAudioChunk(wyoming.AudioFormat{Rate: 16000, Width: 2, Channels: 1}, 0, []byte{9, 9})
	mode.EventFromMic(context.Background(), chunk, chunk.Payload)
	assert.Len(t, w.snapshot(), 3)
}

func TestWakeStreamingIgnoresDetectionWhileAlreadyStreaming(t *testing.T) {
	base := newTestBaseWithWake(t, config.Wake{
		Service: config.Service{URI: "tcp://127.0.0.1:1"},
		Names:   []string{"ok_nabu"},
	})
	w := &fakeWriter{}
	base.SetServer("srv", w)

	mode := satellite.NewWakeStreaming(base, nil, nil, logging.New(logging.Options{}))
	base.SetMode(mode)
	mode.HandleRunSatellite(context.Background())

	mode.EventFromWake(context.Background(), wyoming.Event{Type: wyoming.TypeDetection, Data: map[string]any{"name": "ok_nabu"}})
	first := len(w.snapshot())
	require.Equal(t, 2, first)

	// A second detection while already streaming is ignored.
	mode.EventFromWake(context.Background(), wyoming.Event{Type: wyoming.TypeDetection, Data: map[string]any{"name": "ok_nabu"}})
	assert.Len(t, w.snapshot(), first)
}

func TestWakeStreamingTranscriptReturnsToWaiting(t *testing.T) {
	base := newTestBaseWithWake(t, config.Wake{
		Service: config.Service{URI: "tcp://127.0.0.1:1"},
		Names:   []string{"ok_nabu"},
	})
	w := &fakeWriter{}
	base.SetServer("srv", w)

	mode := satellite.NewWakeStreaming(base, nil, nil, logging.New(logging.Options{}))
	base.SetMode(mode)
	mode.HandleRunSatellite(context.Background())
	mode.EventFromWake(context.Background(), wyoming.Event{Type: wyoming.TypeDetection, Data: map[string]any{"name": "ok_nabu"}})

	mode.OnTranscriptOrError(context.Background(), wyoming.Event{Type: wyoming.TypeTranscript})

	// Back in waiting_for_wake: mic goes to the wake peer again, not the server.
	before := len(w.snapshot())
	chunk := wyoming.NewAudioChunk(wyoming.AudioFormat{Rate: 16000, Width: 2, Channels: 1}, 0, []byte{1})
	mode.EventFromMic(context.Background(), chunk, chunk.Payload)
	assert.Len(t, w.snapshot(), before)
}
