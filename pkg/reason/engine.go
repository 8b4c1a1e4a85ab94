// Package reason decides how to think about a request: which scaffolding
// strategy to apply, how to frame the system prompt, and whether the
// request needs the external tool pipeline instead of a plain model call.
// The engine converts every downstream failure into a low-confidence
// degraded result; it has no visible failure path of its own.
package reason

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loqui-ai/loqui/pkg/provider"
	"github.com/loqui-ai/loqui/pkg/router"
)

// ModelCaller is the router surface the engine needs.
type ModelCaller interface {
	Route(ctx context.Context, prompt string, opts *router.Options) (*provider.Response, error)
}

// Config holds engine tunables. The zero value is usable; missing fields
// take the documented defaults.
type Config struct {
	// DefaultMode applies when the request names none. Defaults to
	// single-shot.
	DefaultMode Mode

	// MaxSteps caps pipeline execution depth. Defaults to 10.
	MaxSteps int

	// PipelineTimeout bounds one tool pipeline submission, independent of
	// per-attempt provider timeouts. Defaults to 180s.
	PipelineTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.DefaultMode == "" {
		c.DefaultMode = ModeSingleShot
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = 10
	}
	if c.PipelineTimeout <= 0 {
		c.PipelineTimeout = 180 * time.Second
	}
	return c
}

// Engine dispatches reasoning strategies around the model router.
type Engine struct {
	mu       sync.RWMutex
	cfg      Config
	caller   ModelCaller
	pipeline ToolPipeline
	logger   *zap.Logger
	inflight sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the engine configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg.withDefaults() }
}

// WithPipeline attaches the external tool pipeline.
func WithPipeline(p ToolPipeline) Option {
	return func(e *Engine) { e.pipeline = p }
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an engine over the given router.
func New(caller ModelCaller, opts ...Option) *Engine {
	e := &Engine{
		cfg:    Config{}.withDefaults(),
		caller: caller,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetConfig hot-swaps the engine configuration. In-flight calls keep the
// configuration they started with; last write wins.
func (e *Engine) SetConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg.withDefaults()
}

// Reason resolves a mode for the request, shapes the prompts, and produces
// a uniform result. Model and pipeline failures come back as degraded
// low-confidence results, never as errors.
func (e *Engine) Reason(ctx context.Context, system, user string, rc Context, civil bool) *Result {
	e.mu.RLock()
	cfg := e.cfg
	e.mu.RUnlock()

	mode := rc.Mode
	if mode == "" {
		mode = cfg.DefaultMode
	}
	system = shapeSystemPrompt(system, rc.Persona, civil)

	if len(rc.AvailableTools) > 0 && needsTools(user) {
		return e.reasonWithTools(ctx, cfg, system, user, rc)
	}
	if mode == ModeToolUse {
		// Tool mode was requested but nothing triggered tool execution;
		// fall back to the baseline strategy.
		mode = ModeSingleShot
	}

	return e.reasonWithStrategy(ctx, mode, system, user, rc)
}

// Shutdown waits for in-flight pipeline submissions to drain.
func (e *Engine) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown interrupted: %w", ctx.Err())
	}
}

func (e *Engine) reasonWithStrategy(ctx context.Context, mode Mode, system, user string, rc Context) *Result {
	strat, ok := strategies[mode]
	if !ok {
		strat = strategies[ModeSingleShot]
	}

	resp, err := e.caller.Route(ctx, strat.shapePrompt(user), &router.Options{
		System:         system,
		PreferredModel: rc.PreferredModel,
	})
	if err != nil {
		e.logger.Warn("model routing failed, returning degraded result",
			zap.String("mode", string(mode)),
			zap.Error(err))
		return &Result{
			Kind:       strat.kind,
			Content:    "I couldn't reach a language model to answer this right now. Please try again shortly.",
			Confidence: 0.1,
			Metadata:   map[string]any{"mode": string(mode)},
			Degraded:   &DegradedInfo{Kind: "provider_failure", Cause: err.Error()},
		}
	}

	confidence := resp.Confidence
	if confidence == 0 {
		confidence = strat.confidence
	}

	result := &Result{
		Kind:       strat.kind,
		Content:    resp.Content,
		Confidence: confidence,
		Metadata: map[string]any{
			"mode":        string(mode),
			"model":       resp.Model,
			"response_id": resp.ID,
			"tokens_used": resp.TokensUsed(),
			"cost":        resp.Cost,
		},
	}
	if strat.kind == KindMultiStep {
		result.Steps = parseSteps(resp.Content, confidence)
	}
	return result
}

func (e *Engine) reasonWithTools(ctx context.Context, cfg Config, system, user string, rc Context) *Result {
	e.mu.RLock()
	pipeline := e.pipeline
	e.mu.RUnlock()

	if pipeline == nil {
		return &Result{
			Kind:       KindToolUse,
			Content:    "This request needs tool execution, but no tool pipeline is configured.",
			Confidence: 0.2,
			Metadata:   map[string]any{"available_tools": rc.AvailableTools},
		}
	}

	constraints := []string{}
	if !rc.AllowCodeExecution {
		constraints = append(constraints, "no_code_execution")
	}

	traceID := uuid.NewString()
	req := SubmitRequest{
		Prompt:      user,
		SessionID:   rc.SessionID,
		TraceID:     traceID,
		UserID:      rc.UserID,
		Metadata:    rc.Metadata,
		Constraints: constraints,
		WorkingDir:  rc.WorkingDir,
		Config: PipelineConfig{
			MaxSteps:        cfg.MaxSteps,
			Timeout:         cfg.PipelineTimeout,
			ValidateResults: true,
			LogExecution:    true,
		},
		WaitForCompletion: true,
	}
	_ = system // the pipeline composes its own prompts from the raw request

	e.inflight.Add(1)
	defer e.inflight.Done()

	submitCtx, cancel := context.WithTimeout(ctx, cfg.PipelineTimeout)
	defer cancel()

	pipeResult, err := pipeline.Submit(submitCtx, req)
	if err != nil {
		e.logger.Warn("tool pipeline failed, returning degraded result",
			zap.String("trace_id", traceID),
			zap.Error(err))
		return &Result{
			Kind:       KindToolUse,
			Content:    "Tool execution failed for this request.",
			Confidence: 0.4,
			Metadata:   map[string]any{"trace_id": traceID},
			Degraded:   &DegradedInfo{Kind: "pipeline_failure", Cause: err.Error()},
		}
	}

	steps := make([]Step, 0, len(pipeResult.Steps))
	toolCalls := make([]string, 0, len(pipeResult.Steps))
	for i, ps := range pipeResult.Steps {
		observation := ps.Output
		confidence := 0.9
		if !ps.Success {
			observation = ps.Error
			confidence = 0.3
		}
		action := callSignature(ps.Tool, i)
		steps = append(steps, Step{
			Index:       i,
			Thought:     ps.Tool,
			Action:      action,
			Observation: observation,
			Confidence:  confidence,
		})
		toolCalls = append(toolCalls, action)
	}

	confidence := 0.9
	content := pipeResult.FinalOutput
	if !pipeResult.Success {
		confidence = 0.4
		if content == "" {
			content = "Tool execution completed with errors."
		}
	}

	return &Result{
		Kind:       KindToolUse,
		Content:    content,
		Confidence: confidence,
		Steps:      steps,
		ToolCalls:  toolCalls,
		Metadata: map[string]any{
			"trace_id":      traceID,
			"total_time_ms": pipeResult.TotalTime.Milliseconds(),
			"step_count":    len(pipeResult.Steps),
		},
	}
}
