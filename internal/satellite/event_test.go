package satellite_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernwood-iot/satellite/internal/config"
	"github.com/fernwood-iot/satellite/internal/logging"
	"github.com/fernwood-iot/satellite/internal/peer"
	"github.com/fernwood-iot/satellite/internal/satellite"
	"github.com/fernwood-iot/satellite/internal/wyoming"
)

type fakeClient struct {
	mu   sync.Mutex
	sent []wyoming.Event
}

func (c *fakeClient) Send(ev wyoming.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, ev)
	return nil
}

func (c *fakeClient) Recv() (wyoming.Event, error) {
	<-make(chan struct{}) // never returns; Run never calls Recv on the event peer
	return wyoming.Event{}, nil
}

func (c *fakeClient) Close() error { return nil }

func (c *fakeClient) snapshot() []wyoming.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]wyoming.Event, len(c.sent))
	copy(out, c.sent)
	return out
}

func TestEventManagerPublishNoopWhenDisabled(t *testing.T) {
	var dials int32
	dial := peer.Dialer(func(ctx context.Context) (peer.Client, error) {
		atomic.AddInt32(&dials, 1)
		return &fakeClient{}, nil
	})

	em := satellite.NewEventManager(dial, config.Event{}, logging.New(logging.Options{}))
	em.Publish(wyoming.Event{Type: wyoming.TypePing})

	// Run returns immediately for a disabled event peer, never dialing.
	em.Run(context.Background())
	assert.EqualValues(t, 0, atomic.LoadInt32(&dials))
}

func TestEventManagerRunDeliversPublishedEvents(t *testing.T) {
	client := &fakeClient{}
	dial := peer.Dialer(func(ctx context.Context) (peer.Client, error) {
		return client, nil
	})

	settings := config.Event{Service: config.Service{URI: "tcp://127.0.0.1:1"}}
	em := satellite.NewEventManager(dial, settings, logging.New(logging.Options{}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go em.Run(ctx)

	em.Publish(wyoming.Event{Type: wyoming.TypeDetection})
	em.Publish(wyoming.Event{Type: wyoming.TypeTranscript})

	require.Eventually(t, func() bool {
		return len(client.snapshot()) == 2
	}, time.Second, 10*time.Millisecond)

	sent := client.snapshot()
	assert.Equal(t, wyoming.TypeDetection, sent[0].Type)
	assert.Equal(t, wyoming.TypeTranscript, sent[1].Type)
}
