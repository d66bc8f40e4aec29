package satellite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernwood-iot/satellite/internal/satellite"
	"github.com/fernwood-iot/satellite/internal/wyoming"
)

func TestAlwaysStreamingRunStreamAndPause(t *testing.T) {
	base := newTestBase(t)
	w := &fakeWriter{}
	base.SetServer("srv", w)

	mode := satellite.NewAlwaysStreaming(base, nil)
	base.SetMode(mode)

	mode.HandleRunSatellite(context.Background())
	require.Len(t, w.snapshot(), 1)
	assert.Equal(t, wyoming.TypeRunPipeline, w.snapshot()[0].Type)
	assert.Equal(t, satellite.StageWake, w.snapshot()[0].Data["start_stage"])
	assert.Equal(t, true, w.snapshot()[0].Data["restart_on_end"])

	chunk := wyoming.NewAudioChunk(wyoming.AudioFormat{Rate: 16000, Width: 2, Channels: 1}, 0, []byte{1, 2})
	mode.EventFromMic(context.Background(), chunk, chunk.Payload)
	require.Len(t, w.snapshot(), 2)
	assert.Equal(t, wyoming.TypeAudioChunk, w.snapshot()[1].Type)

	mode.HandlePauseSatellite(context.Background())
	mode.EventFromMic(context.Background(), chunk, chunk.Payload)
	assert.Len(t, w.snapshot(), 2, "mic events must be dropped while idle")
}

func TestAlwaysStreamingTranscriptKeepsStreaming(t *testing.T) {
	base := newTestBase(t)
	w := &fakeWriter{}
	base.SetServer("srv", w)

	mode := satellite.NewAlwaysStreaming(base, nil)
	base.SetMode(mode)

	mode.HandleRunSatellite(context.Background())
	require.Len(t, w.snapshot(), 1)

	mode.OnTranscriptOrError(context.Background(), wyoming.Event{Type: wyoming.TypeTranscript})

	chunk := wyoming.NewAudioChunk(wyoming.AudioFormat{Rate: 16000, Width: 2, Channels: 1}, 0, []byte{1, 2})
	mode.EventFromMic(context.Background(), chunk, chunk.Payload)
	require.Len(t, w.snapshot(), 2, "always-streaming keeps forwarding mic audio after a transcript")
}
