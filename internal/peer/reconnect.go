package peer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fernwood-iot/satellite/internal/wyoming"
)

// Managed owns a Dialer and keeps a live Client around. Connect dials with
// a fixed delay between failed attempts; Send/Recv do not reconnect on a
// transport error, they drop the dead client and leave the next Connect to
// the caller - the Go
// equivalent of teacher's connect_listen_thread retry loop in
// src/kissnet.go, and of the mic/snd/wake/event task procs' "reconnect on
// error" behavior in original_source/wyoming_satellite/satellite.py.
type Managed struct {
	dial  Dialer
	delay time.Duration

	mu     sync.Mutex
	client Client
}

// NewManaged builds a Managed peer that waits reconnectDelay between
// failed (re)connect attempts. Matches SatelliteSettings.restart_timeout's
// default of 5 seconds when reconnectDelay is zero.
func NewManaged(dial Dialer, reconnectDelay time.Duration) *Managed {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &Managed{dial: dial, delay: reconnectDelay}
}

// Connect blocks until a Client is established or ctx is cancelled,
// retrying indefinitely with the configured delay between attempts.
func (m *Managed) Connect(ctx context.Context) error {
	for {
		c, err := m.dial(ctx)
		if err == nil {
			m.mu.Lock()
			m.client = c
			m.mu.Unlock()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.delay):
		}
	}
}

// Send writes ev to the current client. On a transport error it closes
// the dead client and returns the error; the caller (a peer task loop) is
// expected to call Connect again before retrying, matching the
// original's task-level try/except/reconnect structure.
func (m *Managed) Send(ev wyoming.Event) error {
	m.mu.Lock()
	c := m.client
	m.mu.Unlock()
	if c == nil {
		return fmt.Errorf("peer: not connected")
	}
	if err := c.Send(ev); err != nil {
		m.closeDead()
		return err
	}
	return nil
}

// Recv reads the next event from the current client, closing it and
// returning the error on failure.
func (m *Managed) Recv() (wyoming.Event, error) {
	m.mu.Lock()
	c := m.client
	m.mu.Unlock()
	if c == nil {
		return wyoming.Event{}, fmt.Errorf("peer: not connected")
	}
	ev, err := c.Recv()
	if err != nil {
		m.closeDead()
		return wyoming.Event{}, err
	}
	return ev, nil
}

// Close tears down the current client, if any.
func (m *Managed) Close() error {
	m.mu.Lock()
	c := m.client
	m.client = nil
	m.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}

func (m *Managed) closeDead() {
	m.mu.Lock()
	c := m.client
	m.client = nil
	m.mu.Unlock()
	if c != nil {
		_ = c.Close()
	}
}
