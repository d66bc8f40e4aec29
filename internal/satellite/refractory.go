package satellite

import (
	"sync"
	"time"
)

// refractoryMap tracks, per wake-word name, the monotonic instant after
// which another detection is accepted (spec.md §3 "Refractory map", §8's
// per-name monotonic-interval invariant). An empty name represents "no
// name" detections, tracked the same way as any other key.
type refractoryMap struct {
	mu       sync.Mutex
	until    map[string]time.Time
	duration time.Duration // 0 disables refractory entirely
}

func newRefractoryMap(seconds float64) *refractoryMap {
	d := time.Duration(seconds * float64(time.Second))
	return &refractoryMap{until: make(map[string]time.Time), duration: d}
}

// Allow reports whether a detection for name is currently accepted, and
// if so arms the refractory window starting now.
func (r *refractoryMap) Allow(name string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.duration <= 0 {
		return true
	}

	if until, ok := r.until[name]; ok && now.Before(until) {
		return false
	}
	r.until[name] = now.Add(r.duration)
	return true
}

// Clear removes all armed refractory windows. No return to
// waiting_for_wake calls it: windows armed before a server disconnect or
// a transcript stay armed until they expire.
func (r *refractoryMap) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.until = make(map[string]time.Time)
}
