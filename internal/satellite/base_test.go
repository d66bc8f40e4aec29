package satellite_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernwood-iot/satellite/internal/config"
	"github.com/fernwood-iot/satellite/internal/logging"
	"github.com/fernwood-iot/satellite/internal/satellite"
	"github.com/fernwood-iot/satellite/internal/wyoming"
)

func newTestBase(t *testing.T) *satellite.Base {
	t.Helper()
	logger := logging.New(logging.Options{})
	base := satellite.NewBase(config.Satellite{RestartTimeout: 0.2}, logger)
	base.Triggers = satellite.NewTriggers(nil, nil, logger)
	return base
}

func TestBaseServerBindingRoundTrip(t *testing.T) {
	base := newTestBase(t)
	assert.Equal(t, "", base.ServerID())

	w := &fakeWriter{}
	base.SetServer("srv-1", w)
	assert.Equal(t, "srv-1", base.ServerID())

	base.EventToServer(wyoming.NewPing("hello"))
	require.Len(t, w.snapshot(), 1)
	assert.Equal(t, wyoming.TypePing, w.snapshot()[0].Type)

	base.ClearServer()
	assert.Equal(t, "", base.ServerID())

	// EventToServer is a no-op once unbound.
	base.EventToServer(wyoming.NewPing("ignored"))
	assert.Len(t, w.snapshot(), 1)
}

func TestBaseMicrophoneMuteDropsChunks(t *testing.T) {
	base := newTestBase(t)
	recorder := &micRecordingMode{}
	base.SetMode(recorder)

	chunk := wyoming.NewAudioChunk(wyoming.AudioFormat{Rate: 16000, Width: 2, Channels: 1}, 0, []byte{1, 2})

	base.SetMicrophoneMuted(true)
	base.EventFromMic(context.Background(), chunk, chunk.Payload)
	assert.Equal(t, 0, recorder.count())

	base.SetMicrophoneMuted(false)
	base.EventFromMic(context.Background(), chunk, chunk.Payload)
	assert.Equal(t, 1, recorder.count())
}

func TestBaseMuteForDurationUnmutesAfterDelay(t *testing.T) {
	base := newTestBase(t)
	base.MuteForDuration(30 * time.Millisecond)

	recorder := &micRecordingMode{}
	base.SetMode(recorder)
	chunk := wyoming.NewAudioChunk(wyoming.AudioFormat{Rate: 16000, Width: 2, Channels: 1}, 0, nil)

	base.EventFromMic(context.Background(), chunk, nil)
	assert.Equal(t, 0, recorder.count())

	require.Eventually(t, func() bool {
		base.EventFromMic(context.Background(), chunk, nil)
		return recorder.count() > 0
	}, time.Second, 10*time.Millisecond)
}

func TestBaseLifecycleReachesStoppedOnStop(t *testing.T) {
	base := newTestBase(t)
	base.SetMode(noopMode{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- base.Run(ctx) }()

	require.Eventually(t, func() bool { return base.State() == satellite.Started }, time.Second, 5*time.Millisecond)

	base.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.Equal(t, satellite.Stopped, base.State())
}

type micRecordingMode struct {
	noopMode
	mu sync.Mutex
	n  int
}

func (m *micRecordingMode) EventFromMic(ctx context.Context, ev wyoming.Event, processed []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
}

func (m *micRecordingMode) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.n
}
