package reason

import (
	"context"
	"time"
)

// PipelineConfig tunes one tool pipeline submission.
type PipelineConfig struct {
	MaxSteps        int           `json:"max_steps"`
	Timeout         time.Duration `json:"timeout"`
	AllowParallel   bool          `json:"allow_parallel"`
	RetryCount      int           `json:"retry_count"`
	ValidateResults bool          `json:"validate_results"`
	LogExecution    bool          `json:"log_execution"`
}

// SubmitRequest is handed to the external tool pipeline. The engine treats
// tool semantics as opaque; only the listed fields are interpreted.
type SubmitRequest struct {
	Prompt            string            `json:"prompt"`
	SessionID         string            `json:"session_id,omitempty"`
	TraceID           string            `json:"trace_id"`
	UserID            string            `json:"user_id,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	Constraints       []string          `json:"constraints,omitempty"`
	WorkingDir        string            `json:"working_dir,omitempty"`
	Priority          int               `json:"priority,omitempty"`
	Config            PipelineConfig    `json:"config"`
	WaitForCompletion bool              `json:"wait_for_completion"`
}

// PipelineStep is one executed tool action reported by the pipeline.
type PipelineStep struct {
	Tool    string        `json:"tool"`
	Success bool          `json:"success"`
	Output  string        `json:"output,omitempty"`
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"latency"`
}

// PipelineResult is the structured outcome of one submission.
type PipelineResult struct {
	Success     bool           `json:"success"`
	FinalOutput string         `json:"final_output,omitempty"`
	Steps       []PipelineStep `json:"steps"`
	TotalTime   time.Duration  `json:"total_time"`
}

// ToolPipeline is the narrow interface to the external tool-execution
// subsystem. Submissions block until completion or context cancellation.
type ToolPipeline interface {
	Submit(ctx context.Context, req SubmitRequest) (*PipelineResult, error)
}
