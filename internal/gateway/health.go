package gateway

import (
	"sync"
	"time"
)

// BreakerState mirrors the CLOSED/OPEN/HALF_OPEN state machine spec §4.1
// names explicitly, for external introspection.
type BreakerState string

const (
	StateClosed   BreakerState = "CLOSED"
	StateOpen     BreakerState = "OPEN"
	StateHalfOpen BreakerState = "HALF_OPEN"
)

// SourceHealth is the supplemented per-source circuit breaker introspection
// (SPEC_FULL.md "Supplemented features" #1), grounded on the reference
// architecture's CircuitBreaker.GetStatus().
type SourceHealth struct {
	Source              string
	State               BreakerState
	ConsecutiveFailures int
	OpenedAt            time.Time
}

type healthTracker struct {
	mu    sync.RWMutex
	state map[string]*SourceHealth
}

func newHealthTracker() *healthTracker {
	return &healthTracker{state: make(map[string]*SourceHealth)}
}

func (h *healthTracker) ensure(source string) *SourceHealth {
	h.mu.Lock()
	defer h.mu.Unlock()
	sh, ok := h.state[source]
	if !ok {
		sh = &SourceHealth{Source: source, State: StateClosed}
		h.state[source] = sh
	}
	return sh
}

func (h *healthTracker) onOpen(source string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sh := h.ensureLocked(source)
	sh.State = StateOpen
	sh.OpenedAt = time.Now()
}

func (h *healthTracker) onHalfOpen(source string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensureLocked(source).State = StateHalfOpen
}

func (h *healthTracker) onClose(source string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sh := h.ensureLocked(source)
	sh.State = StateClosed
	sh.ConsecutiveFailures = 0
}

func (h *healthTracker) recordFailure(source string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensureLocked(source).ConsecutiveFailures++
}

func (h *healthTracker) recordSuccess(source string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensureLocked(source).ConsecutiveFailures = 0
}

func (h *healthTracker) ensureLocked(source string) *SourceHealth {
	sh, ok := h.state[source]
	if !ok {
		sh = &SourceHealth{Source: source, State: StateClosed}
		h.state[source] = sh
	}
	return sh
}

// Status returns a snapshot of one source's health without touching it.
func (h *healthTracker) Status(source string) SourceHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if sh, ok := h.state[source]; ok {
		return *sh
	}
	return SourceHealth{Source: source, State: StateClosed}
}

// All returns a snapshot of every tracked source's health.
func (h *healthTracker) All() []SourceHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]SourceHealth, 0, len(h.state))
	for _, sh := range h.state {
		out = append(out, *sh)
	}
	return out
}
