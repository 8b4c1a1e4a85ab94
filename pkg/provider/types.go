package provider

// Role identifies the author of a conversation turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a tool invocation requested by an assistant turn.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input,omitempty"`
}

// ToolResult is the outcome of one tool call, carried by a tool turn.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Message is one turn of multi-turn history in normalized form.
type Message struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// Request is a normalized generation request. Model names the upstream
// model; History, if present, precedes Prompt as prior turns.
type Request struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Prompt      string    `json:"prompt"`
	History     []Message `json:"history,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Response is the normalized result of one successful provider call.
type Response struct {
	ID         string  `json:"id"`
	Model      string  `json:"model"`
	Content    string  `json:"content"`
	TokensIn   int     `json:"tokens_in"`
	TokensOut  int     `json:"tokens_out"`
	Cost       float64 `json:"cost"`
	Confidence float64 `json:"confidence,omitempty"`
}

// TokensUsed returns the total token count for the call.
func (r *Response) TokensUsed() int {
	return r.TokensIn + r.TokensOut
}
