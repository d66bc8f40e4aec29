// Package satellite implements the event-driven orchestrator: the
// lifecycle FSM, server link, peer managers, and the three streaming
// modes, ported from original_source/wyoming_satellite/satellite.py and
// fsmsat.py.
package satellite

import "sync"

// State is the satellite lifecycle FSM (spec.md §3/§4.6).
type State int

const (
	NotStarted State = iota
	Starting
	Started
	Restarting
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Starting:
		return "starting"
	case Started:
		return "started"
	case Restarting:
		return "restarting"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// stateBox holds the current lifecycle state and lets waiters block for
// the next transition, the Go equivalent of the original's asyncio.Event
// "state changed" signal.
type stateBox struct {
	mu      sync.Mutex
	state   State
	waiters []chan struct{}
}

func newStateBox() *stateBox {
	return &stateBox{state: NotStarted}
}

// Get returns the current state.
func (b *stateBox) Get() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Set transitions to s and wakes every waiter, regardless of whether s
// differs from the current state - each transition in the FSM (§4.6) is
// a distinct event even when revisiting a state.
func (b *stateBox) Set(s State) {
	b.mu.Lock()
	b.state = s
	waiters := b.waiters
	b.waiters = nil
	b.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
}

// IsRunning reports the invariant is_running ⇔ state ≠ STOPPED.
func (b *stateBox) IsRunning() bool {
	return b.Get() != Stopped
}

// Wait blocks until the next Set call, returning the state observed
// after it.
func (b *stateBox) Wait() State {
	b.mu.Lock()
	ch := make(chan struct{})
	b.waiters = append(b.waiters, ch)
	b.mu.Unlock()

	<-ch
	return b.Get()
}
