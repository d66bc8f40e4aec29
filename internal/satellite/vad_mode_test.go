package satellite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fernwood-iot/satellite/internal/config"
	"github.com/fernwood-iot/satellite/internal/satellite"
	"github.com/fernwood-iot/satellite/internal/wyoming"
)

func TestVadStreamingDropsMicEventsWhilePaused(t *testing.T) {
	base := newTestBase(t)
	w := &fakeWriter{}
	base.SetServer("srv", w)

	mode := satellite.NewVadStreaming(base, nil, nil, config.Vad{}, config.Mic{Rate: 16000, Width: 2, SamplesPerChunk: 1024}, nil, base.Logger)
	base.SetMode(mode)

	mode.HandleRunSatellite(context.Background())
	mode.HandlePauseSatellite(context.Background())

	chunk := wyoming.NewAudioChunk(wyoming.AudioFormat{Rate: 16000, Width: 2, Channels: 1}, 0, []byte{1, 2})
	mode.EventFromMic(context.Background(), chunk, chunk.Payload)

	assert.Empty(t, w.snapshot(), "mic events must be dropped once paused, before ever touching the VAD")
}

func TestVadStreamingTransitionsDoNotFireStopWhenNotStreaming(t *testing.T) {
	base := newTestBase(t)
	w := &fakeWriter{}
	base.SetServer("srv", w)

	sink := &fakeSink{}
	base.Triggers = satellite.NewTriggers(nil, sink, base.Logger)

	mode := satellite.NewVadStreaming(base, nil, nil, config.Vad{}, config.Mic{Rate: 16000, Width: 2, SamplesPerChunk: 1024}, nil, base.Logger)
	base.SetMode(mode)

	mode.HandleRunSatellite(context.Background())
	mode.OnTranscriptOrError(context.Background(), wyoming.Event{Type: wyoming.TypeTranscript})
	mode.OnServerDisconnected(context.Background())
	mode.HandlePauseSatellite(context.Background())

	assert.Empty(t, w.snapshot(), "none of these transitions fire streaming-stopped while still in the waiting state")
	assert.Equal(t, 0, sink.count(), "no streaming-stopped reaches the event sink while still in the waiting state")
}

func TestVadStreamingIgnoresWakeEvents(t *testing.T) {
	base := newTestBase(t)
	w := &fakeWriter{}
	base.SetServer("srv", w)

	mode := satellite.NewVadStreaming(base, nil, nil, config.Vad{}, config.Mic{Rate: 16000, Width: 2, SamplesPerChunk: 1024}, nil, base.Logger)
	base.SetMode(mode)
	mode.HandleRunSatellite(context.Background())

	mode.EventFromWake(context.Background(), wyoming.Event{Type: wyoming.TypeDetection})

	assert.Empty(t, w.snapshot())
}
