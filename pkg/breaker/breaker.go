// Package breaker gates traffic to failing models. One breaker per model,
// owned by the router that constructed the registry.
package breaker

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // normal operation
	StateOpen                  // failing, reject requests
	StateHalfOpen              // probing whether the model recovered
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config tunes breaker behavior.
type Config struct {
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold int

	// RecoveryTimeout is how long an open breaker waits before probing.
	RecoveryTimeout time.Duration

	// HalfOpenProbes is how many calls to allow while half-open.
	HalfOpenProbes int
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
		HalfOpenProbes:   1,
	}
}

// Snapshot is a point-in-time view of one breaker.
type Snapshot struct {
	State               State     `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
	ProbesUsed          int       `json:"probes_used"`
}

type entry struct {
	state       State
	failures    int
	lastFailure time.Time
	probesUsed  int
}

// Registry holds one breaker per model. All methods are safe for
// concurrent use.
type Registry struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]*entry
	now     func() time.Time
}

// NewRegistry creates a registry with one closed breaker per model.
func NewRegistry(models []string, cfg Config) *Registry {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultConfig().RecoveryTimeout
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = DefaultConfig().HalfOpenProbes
	}
	entries := make(map[string]*entry, len(models))
	for _, m := range models {
		entries[m] = &entry{state: StateClosed}
	}
	return &Registry{cfg: cfg, entries: entries, now: time.Now}
}

// WithClock replaces the registry clock. Test hook.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
	return r
}

// Allow reports whether the model may be called. An open breaker whose
// recovery timeout has elapsed transitions to half-open here; there is no
// background timer.
func (r *Registry) Allow(model string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entry(model)
	switch e.state {
	case StateClosed:
		return true
	case StateOpen:
		if r.now().Sub(e.lastFailure) > r.cfg.RecoveryTimeout {
			e.state = StateHalfOpen
			e.probesUsed = 1
			return true
		}
		return false
	case StateHalfOpen:
		if e.probesUsed < r.cfg.HalfOpenProbes {
			e.probesUsed++
			return true
		}
		return false
	}
	return false
}

// RecordSuccess clears failures and closes a half-open breaker.
func (r *Registry) RecordSuccess(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entry(model)
	e.failures = 0
	e.probesUsed = 0
	if e.state == StateHalfOpen {
		e.state = StateClosed
	}
}

// RecordFailure counts a failure, opening the breaker at the threshold.
// Any failure while half-open reopens it and resets the recovery clock.
func (r *Registry) RecordFailure(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entry(model)
	e.failures++
	e.lastFailure = r.now()
	if e.state == StateHalfOpen || e.failures >= r.cfg.FailureThreshold {
		e.state = StateOpen
		e.probesUsed = 0
	}
}

// Status returns a snapshot of every breaker.
func (r *Registry) Status() map[string]Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Snapshot, len(r.entries))
	for model, e := range r.entries {
		out[model] = Snapshot{
			State:               e.state,
			ConsecutiveFailures: e.failures,
			LastFailure:         e.lastFailure,
			ProbesUsed:          e.probesUsed,
		}
	}
	return out
}

func (r *Registry) entry(model string) *entry {
	e, ok := r.entries[model]
	if !ok {
		e = &entry{state: StateClosed}
		r.entries[model] = e
	}
	return e
}
