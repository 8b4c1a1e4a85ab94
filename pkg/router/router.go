// Package router selects a model for each prompt, attempts it with
// retries, and cascades to fallback models on failure. The router owns all
// breaker, rate-limit, and metrics state for its model set.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/loqui-ai/loqui/pkg/breaker"
	"github.com/loqui-ai/loqui/pkg/config"
	"github.com/loqui-ai/loqui/pkg/provider"
	"github.com/loqui-ai/loqui/pkg/ratelimit"
	"github.com/loqui-ai/loqui/pkg/retry"
)

// Sentinel errors for the two hard failure classes that are not tied to a
// particular provider attempt.
var (
	ErrNoModels          = errors.New("no models configured")
	ErrNoAvailableModels = errors.New("no models available: all circuit-open or rate-limited")
)

// ExhaustedError reports that every candidate model failed. It carries the
// last underlying cause.
type ExhaustedError struct {
	Attempted []string
	LastErr   error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d models failed, last error: %v", len(e.Attempted), e.LastErr)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// Options are per-call routing options.
type Options struct {
	// PreferredModel, when set and available, is tried first.
	PreferredModel string

	// System is the system prompt for the call.
	System string

	// History carries prior conversation turns.
	History []provider.Message
}

// Router routes prompts across a fixed set of configured models.
type Router struct {
	mu        sync.Mutex
	models    []config.ModelConfig
	providers map[string]provider.Provider
	breakers  *breaker.Registry
	limits    *ratelimit.Registry
	policy    *retry.Policy
	metrics   map[string]*Metrics
	probe     ReachabilityProbe
	logger    *zap.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// WithBreakerConfig overrides circuit breaker tuning.
func WithBreakerConfig(cfg breaker.Config) Option {
	return func(r *Router) { r.breakers = breaker.NewRegistry(modelNames(r.models), cfg) }
}

// WithRateLimitConfig overrides rate limiter tuning.
func WithRateLimitConfig(cfg ratelimit.Config) Option {
	return func(r *Router) { r.limits = ratelimit.NewRegistry(modelNames(r.models), cfg) }
}

// WithRetryPolicy overrides the retry policy. The policy's RetryIf is
// forced to the provider error classification.
func WithRetryPolicy(policy *retry.Policy) Option {
	return func(r *Router) { r.policy = policy }
}

// WithProbe overrides the outbound reachability probe used by
// RouteWithOfflineFallback.
func WithProbe(probe ReachabilityProbe) Option {
	return func(r *Router) { r.probe = probe }
}

// New creates a router over the given model set. Providers are keyed by
// family name; every model's family must be present in the map.
func New(models []config.ModelConfig, providers map[string]provider.Provider, opts ...Option) (*Router, error) {
	for _, m := range models {
		if _, ok := providers[m.Provider]; !ok {
			return nil, fmt.Errorf("model %q: no provider registered for family %q", m.Name, m.Provider)
		}
	}

	names := modelNames(models)
	metrics := make(map[string]*Metrics, len(models))
	for _, name := range names {
		metrics[name] = &Metrics{}
	}

	r := &Router{
		models:    models,
		providers: providers,
		breakers:  breaker.NewRegistry(names, breaker.DefaultConfig()),
		limits:    ratelimit.NewRegistry(names, ratelimit.DefaultConfig()),
		metrics:   metrics,
		probe:     DefaultProbe(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.policy == nil {
		r.policy = retry.DefaultPolicy()
	}
	r.policy.RetryIf = provider.IsTransient
	return r, nil
}

// Route picks a model for the prompt, attempts it with retries, and
// cascades to the remaining available models on failure.
func (r *Router) Route(ctx context.Context, prompt string, opts *Options) (*provider.Response, error) {
	return r.routeAmong(ctx, r.models, prompt, opts)
}

// BreakerStatus returns a snapshot of every model's circuit breaker.
func (r *Router) BreakerStatus() map[string]breaker.Snapshot {
	return r.breakers.Status()
}

// Models returns the configured model set.
func (r *Router) Models() []config.ModelConfig {
	out := make([]config.ModelConfig, len(r.models))
	copy(out, r.models)
	return out
}

func (r *Router) routeAmong(ctx context.Context, models []config.ModelConfig, prompt string, opts *Options) (*provider.Response, error) {
	if opts == nil {
		opts = &Options{}
	}
	if len(models) == 0 {
		return nil, ErrNoModels
	}

	candidates := r.available(models)
	if len(candidates) == 0 {
		return nil, ErrNoAvailableModels
	}
	ordered := r.order(candidates, opts.PreferredModel)

	var attempted []string
	var lastErr error
	for _, m := range ordered {
		resp, err := r.attempt(ctx, m, prompt, opts)
		if err == nil {
			r.logger.Debug("model call succeeded",
				zap.String("model", m.Name),
				zap.Int("fallback_depth", len(attempted)))
			return resp, nil
		}
		attempted = append(attempted, m.Name)
		lastErr = err
		r.logger.Warn("model failed, trying next candidate",
			zap.String("model", m.Name),
			zap.Error(err))
	}

	return nil, &ExhaustedError{Attempted: attempted, LastErr: lastErr}
}

// available filters the model set to those whose breaker allows traffic
// and whose rate window has room, preserving configuration order.
func (r *Router) available(models []config.ModelConfig) []config.ModelConfig {
	var out []config.ModelConfig
	for _, m := range models {
		if !r.breakers.Allow(m.Name) {
			continue
		}
		if r.limits.Limited(m.Name) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// order returns candidates with the primary first: an available preferred
// model wins, otherwise the highest historical success rate, ties broken
// by configuration order.
func (r *Router) order(candidates []config.ModelConfig, preferred string) []config.ModelConfig {
	primary := 0
	if preferred != "" {
		found := false
		for i, m := range candidates {
			if m.Name == preferred {
				primary = i
				found = true
				break
			}
		}
		if !found {
			primary = r.bestIndex(candidates)
		}
	} else {
		primary = r.bestIndex(candidates)
	}

	ordered := make([]config.ModelConfig, 0, len(candidates))
	ordered = append(ordered, candidates[primary])
	for i, m := range candidates {
		if i != primary {
			ordered = append(ordered, m)
		}
	}
	return ordered
}

func (r *Router) bestIndex(candidates []config.ModelConfig) int {
	best := 0
	bestRate := -1.0
	for i, m := range candidates {
		if rate := r.successRate(m.Name); rate > bestRate {
			best = i
			bestRate = rate
		}
	}
	return best
}

// attempt runs one model through the full retry logic. Breaker, rate
// window, and metrics are updated once per individual attempt.
func (r *Router) attempt(ctx context.Context, m config.ModelConfig, prompt string, opts *Options) (*provider.Response, error) {
	prov := r.providers[m.Provider]
	req := provider.Request{
		Model:       m.Name,
		System:      opts.System,
		Prompt:      prompt,
		History:     opts.History,
		Temperature: m.Temperature,
		MaxTokens:   m.MaxTokens,
	}

	hooks := retry.Hooks{
		OnSuccess: func() { r.breakers.RecordSuccess(m.Name) },
		OnFailure: func(err error) {
			r.breakers.RecordFailure(m.Name)
			r.recordFailure(m.Name)
		},
	}

	resp, err := retry.DoWithResult(ctx, r.policy, hooks, func(ctx context.Context) (*provider.Response, error) {
		r.limits.Record(m.Name)
		r.recordAttempt(m.Name)
		return prov.Generate(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	r.recordSuccess(m.Name, resp.TokensIn, resp.TokensOut, resp.Cost)
	return resp, nil
}

func modelNames(models []config.ModelConfig) []string {
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}
	return names
}
