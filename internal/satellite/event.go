package satellite

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fernwood-iot/satellite/internal/config"
	"github.com/fernwood-iot/satellite/internal/peer"
	"github.com/fernwood-iot/satellite/internal/wyoming"
)

// EventManager is the event-peer fan-out task (spec.md §4.5 "Event
// task"): drains an inbound queue and writes each event to the optional
// observability peer. Errors here never influence satellite behavior.
type EventManager struct {
	managed  *peer.Managed
	settings config.Event
	queue    chan wyoming.Event
	logger   *log.Logger

	connected bool
}

// NewEventManager builds an EventManager. Implements EventSink so
// Triggers can call Publish directly.
func NewEventManager(dial peer.Dialer, settings config.Event, logger *log.Logger) *EventManager {
	return &EventManager{
		managed:  peer.NewManaged(dial, time.Duration(settings.ReconnectSeconds*float64(time.Second))),
		settings: settings,
		queue:    make(chan wyoming.Event, 4096),
		logger:   logger,
	}
}

// Publish enqueues ev for fan-out. A no-op if the event peer is disabled.
func (e *EventManager) Publish(ev wyoming.Event) {
	if !e.settings.Enabled() {
		return
	}
	select {
	case e.queue <- ev:
	default:
		e.logger.Warn("event queue full, dropping event", "type", ev.Type)
	}
}

// Run drains the queue until ctx is cancelled.
func (e *EventManager) Run(ctx context.Context) {
	if !e.settings.Enabled() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.queue:
			e.handle(ctx, ev)
		}
	}
}

func (e *EventManager) handle(ctx context.Context, ev wyoming.Event) {
	if !e.connected {
		if err := e.managed.Connect(ctx); err != nil {
			return
		}
		e.connected = true
	}
	if err := e.managed.Send(ev); err != nil {
		e.logger.Warn("event peer write failed, reconnecting", "error", err)
		e.connected = false
	}
}

// Close tears down the event peer connection.
func (e *EventManager) Close() {
	_ = e.managed.Close()
	e.connected = false
}
