package satellite

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fernwood-iot/satellite/internal/config"
	"github.com/fernwood-iot/satellite/internal/peer"
	"github.com/fernwood-iot/satellite/internal/wyoming"
)

// WakeManager is the bidirectional wake peer task (spec.md §4.5 "Wake
// task"): on connect it sends Detect, then concurrently services an
// outbound queue and the inbound event stream, delivering inbound events
// to the satellite via Base.EventFromWakeRaw (which the mode consumes
// through Mode.EventFromWake).
type WakeManager struct {
	managed  *peer.Managed
	settings config.Wake
	outbound chan wyoming.Event
	infoCh   chan wyoming.Event
	logger   *log.Logger
}

// NewWakeManager builds a WakeManager.
func NewWakeManager(dial peer.Dialer, settings config.Wake, logger *log.Logger) *WakeManager {
	return &WakeManager{
		managed:  peer.NewManaged(dial, time.Duration(settings.ReconnectSeconds*float64(time.Second))),
		settings: settings,
		outbound: make(chan wyoming.Event, 256),
		infoCh:   make(chan wyoming.Event, 1),
		logger:   logger,
	}
}

// Describe sends a Describe event to the wake peer and waits up to 2s
// for its Info reply, implementing update_info's wake-peer half
// (spec.md §4.7.3 "update_info").
func (w *WakeManager) Describe(ctx context.Context) (wyoming.Event, error) {
	if !w.settings.Enabled() {
		return wyoming.Event{}, context.DeadlineExceeded
	}
	w.Send(wyoming.Event{Type: wyoming.TypeDescribe})

	timeout, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	select {
	case ev := <-w.infoCh:
		return ev, nil
	case <-timeout.Done():
		return wyoming.Event{}, timeout.Err()
	}
}

// Send queues ev for delivery to the wake peer (event_to_wake).
func (w *WakeManager) Send(ev wyoming.Event) {
	if !w.settings.Enabled() {
		return
	}
	select {
	case w.outbound <- ev:
	default:
		w.logger.Warn("wake outbound queue full, dropping event", "type", ev.Type)
	}
}

// Run connects, sends the initial Detect, and multiplexes outbound and
// inbound events until ctx is cancelled, reconnecting on any error.
func (w *WakeManager) Run(ctx context.Context, base *Base) {
	if !w.settings.Enabled() {
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}
		if err := w.managed.Connect(ctx); err != nil {
			return
		}

		base.Triggers.Fire(TriggerDetect, w.buildDetect())
		if err := w.managed.Send(w.buildDetect()); err != nil {
			continue
		}

		inbound := make(chan wyoming.Event)
		recvErr := make(chan error, 1)
		recvCtx, cancelRecv := context.WithCancel(ctx)
		go func() {
			for {
				ev, err := w.managed.Recv()
				if err != nil {
					recvErr <- err
					return
				}
				select {
				case inbound <- ev:
				case <-recvCtx.Done():
					return
				}
			}
		}()

		w.multiplex(ctx, base, inbound, recvErr)
		cancelRecv()

		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay(w.settings.ReconnectSeconds)):
		}
	}
}

func (w *WakeManager) multiplex(ctx context.Context, base *Base, inbound <-chan wyoming.Event, recvErr <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-recvErr:
			w.logger.Warn("wake peer read failed, reconnecting", "error", err)
			return
		case ev := <-w.outbound:
			if err := w.managed.Send(ev); err != nil {
				w.logger.Warn("wake peer write failed, reconnecting", "error", err)
				return
			}
		case ev := <-inbound:
			if ev.Type == wyoming.TypeInfo {
				select {
				case w.infoCh <- ev:
				default:
				}
			}
			base.EventFromWakeRaw(ctx, ev)
		}
	}
}

func (w *WakeManager) buildDetect() wyoming.Event {
	names := make([]any, len(w.settings.Names))
	for i, spec := range w.settings.Names {
		name, _ := ParseWakeWordSpec(spec)
		names[i] = name
	}
	return wyoming.Event{Type: wyoming.TypeDetect, Data: map[string]any{"names": names}}
}

// Close tears down the wake peer connection.
func (w *WakeManager) Close() {
	_ = w.managed.Close()
}
