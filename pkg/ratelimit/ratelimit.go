// Package ratelimit caps per-model request volume with fixed windows.
// Counters are process-local; a model can be limited while its circuit
// breaker is closed, and vice versa.
package ratelimit

import (
	"sync"
	"time"
)

// Config tunes the limiter.
type Config struct {
	// Window is the counting period.
	Window time.Duration

	// MaxRequests is the attempt cap per window.
	MaxRequests int
}

// DefaultConfig returns the default limiter configuration.
func DefaultConfig() Config {
	return Config{
		Window:      time.Minute,
		MaxRequests: 60,
	}
}

type window struct {
	count   int
	resetAt time.Time
}

// Registry holds one window per model. All methods are safe for
// concurrent use.
type Registry struct {
	mu      sync.Mutex
	cfg     Config
	windows map[string]*window
	now     func() time.Time
}

// NewRegistry creates a registry with one empty window per model.
func NewRegistry(models []string, cfg Config) *Registry {
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultConfig().MaxRequests
	}
	windows := make(map[string]*window, len(models))
	for _, m := range models {
		windows[m] = &window{}
	}
	return &Registry{cfg: cfg, windows: windows, now: time.Now}
}

// WithClock replaces the registry clock. Test hook.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
	return r
}

// Limited reports whether the model has reached its cap for the current
// window. An expired window is reset lazily here.
func (r *Registry) Limited(model string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.window(model)
	r.rotate(w)
	return w.count >= r.cfg.MaxRequests
}

// Record counts one attempt against the model's window. Every attempt
// counts, not only successes.
func (r *Registry) Record(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.window(model)
	r.rotate(w)
	w.count++
}

// Remaining returns how many attempts are left in the current window.
func (r *Registry) Remaining(model string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.window(model)
	r.rotate(w)
	if left := r.cfg.MaxRequests - w.count; left > 0 {
		return left
	}
	return 0
}

func (r *Registry) rotate(w *window) {
	now := r.now()
	if now.After(w.resetAt) {
		w.count = 0
		w.resetAt = now.Add(r.cfg.Window)
	}
}

func (r *Registry) window(model string) *window {
	w, ok := r.windows[model]
	if !ok {
		w = &window{}
		r.windows[model] = w
	}
	return w
}
