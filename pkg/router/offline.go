package router

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/loqui-ai/loqui/pkg/config"
	"github.com/loqui-ai/loqui/pkg/provider"
)

// ReachabilityProbe reports whether outbound connectivity exists.
type ReachabilityProbe func(ctx context.Context) bool

const (
	probeAddress = "1.1.1.1:443"
	probeTimeout = 3 * time.Second
)

// DefaultProbe dials a well-known endpoint with a short timeout.
func DefaultProbe() ReachabilityProbe {
	return ProbeAddress(probeAddress, probeTimeout)
}

// ProbeAddress returns a probe dialing the given address.
func ProbeAddress(address string, timeout time.Duration) ReachabilityProbe {
	return func(ctx context.Context) bool {
		dialer := &net.Dialer{Timeout: timeout}
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}
}

// RouteWithOfflineFallback routes like Route, but degrades gracefully when
// offline: with no outbound connectivity only local-inference models with a
// healthy server are considered, and when normal routing fails while online
// the same local subset is tried as a last resort. The substitution is
// scoped to this call; the configured model list is never modified.
func (r *Router) RouteWithOfflineFallback(ctx context.Context, prompt string, opts *Options) (*provider.Response, error) {
	if !r.probe(ctx) {
		r.logger.Info("offline: restricting to local inference models")
		return r.routeAmong(ctx, r.localModels(ctx), prompt, opts)
	}

	resp, err := r.routeAmong(ctx, r.models, prompt, opts)
	if err == nil {
		return resp, nil
	}

	locals := r.localModels(ctx)
	if len(locals) == 0 {
		return nil, err
	}
	r.logger.Warn("online routing failed, trying local models as last resort", zap.Error(err))
	resp, localErr := r.routeAmong(ctx, locals, prompt, opts)
	if localErr != nil {
		return nil, err // surface the original failure
	}
	return resp, nil
}

// localModels returns the configured models whose provider is a local
// inference server currently reporting healthy.
func (r *Router) localModels(ctx context.Context) []config.ModelConfig {
	var out []config.ModelConfig
	for _, m := range r.models {
		local, ok := r.providers[m.Provider].(provider.LocalProvider)
		if !ok {
			continue
		}
		if local.Healthy(ctx) {
			out = append(out, m)
		}
	}
	return out
}
