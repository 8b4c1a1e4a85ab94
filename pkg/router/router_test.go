package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/loqui-ai/loqui/pkg/breaker"
	"github.com/loqui-ai/loqui/pkg/config"
	"github.com/loqui-ai/loqui/pkg/provider"
	"github.com/loqui-ai/loqui/pkg/ratelimit"
	"github.com/loqui-ai/loqui/pkg/retry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubProvider scripts per-call behavior for one model family.
type stubProvider struct {
	name string

	mu    sync.Mutex
	calls int
	fn    func(call int, req provider.Request) (*provider.Response, error)
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(_ context.Context, req provider.Request) (*provider.Response, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return s.fn(call, req)
}

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// localStub additionally reports as a healthy local inference server.
type localStub struct {
	stubProvider
	healthy bool
}

func (s *localStub) Healthy(context.Context) bool { return s.healthy }

func succeedWith(content string, cost float64) func(int, provider.Request) (*provider.Response, error) {
	return func(_ int, req provider.Request) (*provider.Response, error) {
		return &provider.Response{
			ID:        "resp-1",
			Model:     req.Model,
			Content:   content,
			TokensIn:  10,
			TokensOut: 20,
			Cost:      cost,
		}, nil
	}
}

func failWith(err error) func(int, provider.Request) (*provider.Response, error) {
	return func(int, provider.Request) (*provider.Response, error) { return nil, err }
}

func fastPolicy(maxAttempts int) *retry.Policy {
	return &retry.Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
}

func model(name, family string) config.ModelConfig {
	return config.ModelConfig{Name: name, Provider: family, Temperature: 0.7, MaxTokens: 100}
}

func newTestRouter(t *testing.T, models []config.ModelConfig, providers map[string]provider.Provider, opts ...Option) *Router {
	t.Helper()
	opts = append([]Option{WithRetryPolicy(fastPolicy(2))}, opts...)
	r, err := New(models, providers, opts...)
	require.NoError(t, err)
	return r
}

func TestRoute_NoModelsConfigured(t *testing.T) {
	r := newTestRouter(t, nil, map[string]provider.Provider{})

	_, err := r.Route(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, ErrNoModels)
}

func TestNew_UnknownFamilyRejected(t *testing.T) {
	_, err := New([]config.ModelConfig{model("a", "ghost")}, map[string]provider.Provider{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestRoute_PreferredModelWins(t *testing.T) {
	stubA := &stubProvider{name: "fam-a", fn: succeedWith("from a", 0.01)}
	stubB := &stubProvider{name: "fam-b", fn: succeedWith("from b", 0.01)}
	r := newTestRouter(t,
		[]config.ModelConfig{model("a", "fam-a"), model("b", "fam-b")},
		map[string]provider.Provider{"fam-a": stubA, "fam-b": stubB})

	resp, err := r.Route(context.Background(), "hello", &Options{PreferredModel: "b"})
	require.NoError(t, err)
	assert.Equal(t, "from b", resp.Content)
	assert.Zero(t, stubA.callCount())
}

func TestRoute_SelectsHighestSuccessRate(t *testing.T) {
	failing := &stubProvider{name: "fam-a", fn: failWith(errors.New("500 internal"))}
	fresh := &stubProvider{name: "fam-b", fn: succeedWith("from b", 0)}
	r := newTestRouter(t,
		[]config.ModelConfig{model("a", "fam-a"), model("b", "fam-b")},
		map[string]provider.Provider{"fam-a": failing, "fam-b": fresh},
		WithBreakerConfig(breaker.Config{FailureThreshold: 100}))

	// Give model a a failure history; b rescues via fallback.
	_, err := r.Route(context.Background(), "warmup", &Options{PreferredModel: "a"})
	require.NoError(t, err)

	// No preference: b has a perfect record, a does not, so b goes first.
	failing.mu.Lock()
	callsBefore := failing.calls
	failing.mu.Unlock()

	resp, err := r.Route(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "from b", resp.Content)
	assert.Equal(t, callsBefore, failing.callCount(), "degraded model is not tried when the primary succeeds")
}

func TestRoute_FallbackCascade(t *testing.T) {
	transient := &stubProvider{name: "fam-1", fn: failWith(errors.New("503 service unavailable"))}
	auth := &stubProvider{name: "fam-2", fn: failWith(errors.New("401 invalid_api_key"))}
	good := &stubProvider{name: "fam-3", fn: succeedWith("third time lucky", 0.002)}

	r := newTestRouter(t,
		[]config.ModelConfig{model("m1", "fam-1"), model("m2", "fam-2"), model("m3", "fam-3")},
		map[string]provider.Provider{"fam-1": transient, "fam-2": auth, "fam-3": good},
		WithBreakerConfig(breaker.Config{FailureThreshold: 100}))

	resp, err := r.Route(context.Background(), "hello", &Options{PreferredModel: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", resp.Content)

	metrics := r.Metrics()
	assert.Equal(t, int64(1), metrics["m3"].SuccessfulRequests)
	assert.Equal(t, int64(2), metrics["m1"].FailedRequests, "transient error retried to exhaustion")
	assert.Equal(t, int64(1), metrics["m2"].FailedRequests, "non-retryable error attempted exactly once")
	assert.Equal(t, int64(1), metrics["m2"].TotalRequests)
}

func TestRoute_AllModelsFail(t *testing.T) {
	lastErr := errors.New("502 bad gateway")
	bad := &stubProvider{name: "fam", fn: failWith(lastErr)}
	r := newTestRouter(t,
		[]config.ModelConfig{model("only", "fam")},
		map[string]provider.Provider{"fam": bad},
		WithBreakerConfig(breaker.Config{FailureThreshold: 100}))

	_, err := r.Route(context.Background(), "hello", nil)
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, []string{"only"}, exhausted.Attempted)
	assert.ErrorIs(t, err, lastErr)
}

func TestRoute_OpenBreakerExcludesModel(t *testing.T) {
	bad := &stubProvider{name: "fam", fn: failWith(errors.New("500 internal"))}
	r := newTestRouter(t,
		[]config.ModelConfig{model("only", "fam")},
		map[string]provider.Provider{"fam": bad},
		WithBreakerConfig(breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Hour}))

	_, err := r.Route(context.Background(), "hello", nil)
	require.Error(t, err)

	_, err = r.Route(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, ErrNoAvailableModels)
	assert.Equal(t, breaker.StateOpen, r.BreakerStatus()["only"].State)
}

func TestRoute_RateLimitedModelExcluded(t *testing.T) {
	good := &stubProvider{name: "fam", fn: succeedWith("ok", 0)}
	r := newTestRouter(t,
		[]config.ModelConfig{model("only", "fam")},
		map[string]provider.Provider{"fam": good},
		WithRateLimitConfig(ratelimit.Config{Window: time.Hour, MaxRequests: 1}))

	_, err := r.Route(context.Background(), "hello", nil)
	require.NoError(t, err)

	_, err = r.Route(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, ErrNoAvailableModels)
	assert.Equal(t, breaker.StateClosed, r.BreakerStatus()["only"].State,
		"rate limiting is independent of breaker state")
}

func TestMetrics_SnapshotIsIdempotent(t *testing.T) {
	good := &stubProvider{name: "fam", fn: succeedWith("ok", 0.5)}
	r := newTestRouter(t,
		[]config.ModelConfig{model("m", "fam")},
		map[string]provider.Provider{"fam": good})

	_, err := r.Route(context.Background(), "hello", nil)
	require.NoError(t, err)

	first := r.Metrics()
	second := r.Metrics()
	assert.Equal(t, first, second)

	// Mutating the snapshot must not touch router state.
	first["m"] = Metrics{TotalCost: 999}
	assert.Equal(t, second, r.Metrics())
}

func TestRoute_EndToEnd(t *testing.T) {
	stubA := &stubProvider{name: "fam-a", fn: succeedWith("hello from a", 0.0123)}
	stubB := &stubProvider{name: "fam-b", fn: succeedWith("hello from b", 0.9)}
	r := newTestRouter(t,
		[]config.ModelConfig{model("a", "fam-a"), model("b", "fam-b")},
		map[string]provider.Provider{"fam-a": stubA, "fam-b": stubB})

	resp, err := r.Route(context.Background(), "hello", nil)
	require.NoError(t, err)

	assert.Equal(t, "hello from a", resp.Content)
	assert.InDelta(t, 0.0123, r.TotalCost(), 1e-9)
	assert.Equal(t, breaker.StateClosed, r.BreakerStatus()["a"].State)
	assert.Zero(t, stubB.callCount())

	metrics := r.Metrics()
	assert.Equal(t, int64(1), metrics["a"].TotalRequests)
	assert.Equal(t, int64(10), metrics["a"].TokensIn)
	assert.Equal(t, int64(20), metrics["a"].TokensOut)
	assert.Equal(t, Metrics{}, metrics["b"])
}

func TestRoute_TiesBrokenByConfigurationOrder(t *testing.T) {
	first := &stubProvider{name: "fam-1", fn: succeedWith("first", 0)}
	second := &stubProvider{name: "fam-2", fn: succeedWith("second", 0)}
	r := newTestRouter(t,
		[]config.ModelConfig{model("one", "fam-1"), model("two", "fam-2")},
		map[string]provider.Provider{"fam-1": first, "fam-2": second})

	resp, err := r.Route(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content, "both have rate 1.0, configuration order decides")
}
