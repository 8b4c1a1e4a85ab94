package reason

// Mode selects the strategy shaping how a prompt is scaffolded before the
// model call.
type Mode string

const (
	ModeSingleShot     Mode = "single_shot"
	ModeChainOfThought Mode = "chain_of_thought"
	ModeTreeOfThought  Mode = "tree_of_thought"
	ModeReflexion      Mode = "reflexion"
	ModeToolUse        Mode = "tool_use"
)

// Kind classifies a reasoning result.
type Kind string

const (
	KindDirectResponse Kind = "direct_response"
	KindToolUse        Kind = "tool_use"
	KindMultiStep      Kind = "multi_step"
)

// Step is one element of a multi-step reasoning trace.
type Step struct {
	Index       int     `json:"index"`
	Thought     string  `json:"thought"`
	Action      string  `json:"action,omitempty"`
	Observation string  `json:"observation,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// DegradedInfo marks a result produced from a caught failure rather than a
// healthy model or pipeline call. Kind is one of "provider_failure" or
// "pipeline_failure".
type DegradedInfo struct {
	Kind  string `json:"kind"`
	Cause string `json:"cause"`
}

// Result is the uniform output of the engine regardless of strategy. A
// failed model or pipeline call yields a low-confidence Result with
// Degraded set; the engine never surfaces those failures as errors.
type Result struct {
	Kind       Kind           `json:"kind"`
	Content    string         `json:"content"`
	Confidence float64        `json:"confidence"`
	Steps      []Step         `json:"steps,omitempty"`
	ToolCalls  []string       `json:"tool_calls,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Degraded   *DegradedInfo  `json:"degraded,omitempty"`
}

// Context carries per-request reasoning inputs. All fields are optional.
type Context struct {
	// Mode overrides the engine's configured default strategy.
	Mode Mode

	// Persona names a behavioral framing block appended to the system
	// prompt: "sarcastic", "contrarian", "technical", or "reflective".
	Persona string

	// PreferredModel is passed through to the router as a routing hint.
	PreferredModel string

	// AvailableTools lists tools the surrounding application has enabled.
	// Tool-use detection only runs when this is non-empty.
	AvailableTools []string

	// AllowCodeExecution permits the tool pipeline to run code.
	AllowCodeExecution bool

	SessionID  string
	UserID     string
	WorkingDir string
	Metadata   map[string]string
}
