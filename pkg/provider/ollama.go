package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaProvider implements the Provider interface for a local inference
// server. Calls cost nothing; availability depends on the server running.
type OllamaProvider struct {
	baseURL    func() string
	httpClient *http.Client
}

// ollamaChatRequest is the /api/chat request body.
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// ollamaChatResponse is the non-streaming /api/chat response body.
type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	Error           string        `json:"error,omitempty"`
}

// NewOllama creates a local-inference provider. The base URL is read on
// every call so it can be repointed without a restart.
func NewOllama(baseURL func() string) *OllamaProvider {
	if baseURL == nil {
		baseURL = func() string { return defaultOllamaBaseURL }
	}
	return &OllamaProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// Name returns the provider family identifier.
func (p *OllamaProvider) Name() string {
	return FamilyOllama
}

// Healthy probes the server's model listing endpoint.
func (p *OllamaProvider) Healthy(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, p.resolveBaseURL()+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// Generate sends the request to the local chat endpoint.
func (p *OllamaProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	base := p.resolveBaseURL()
	if !p.Healthy(ctx) {
		return nil, &Error{
			Provider:  p.Name(),
			Temporary: true,
			Err:       fmt.Errorf("local inference server unreachable at %s; start it or configure a different base URL", base),
		}
	}

	messages := make([]ollamaMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: req.System})
	}
	for _, msg := range req.History {
		role := msg.Role
		if role == RoleTool {
			role = RoleUser
		}
		messages = append(messages, ollamaMessage{Role: role, Content: flattenMessage(msg)})
	}
	messages = append(messages, ollamaMessage{Role: RoleUser, Content: req.Prompt})

	body := ollamaChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   false,
	}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		body.Options = &ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Provider: p.Name(), Temporary: true, Err: fmt.Errorf("local chat request failed: %w", err)}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &Error{Provider: p.Name(), Temporary: true, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &Error{
			Provider: p.Name(),
			Status:   httpResp.StatusCode,
			Err:      fmt.Errorf("local server returned status %d: %s", httpResp.StatusCode, respBody),
		}
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if chatResp.Error != "" {
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("local server error: %s", chatResp.Error)}
	}

	tokensIn := chatResp.PromptEvalCount
	tokensOut := chatResp.EvalCount
	if tokensIn == 0 && tokensOut == 0 {
		tokensIn = EstimateTokens(req.Prompt)
		tokensOut = EstimateTokens(chatResp.Message.Content)
	}

	return &Response{
		ID:        uuid.NewString(),
		Model:     req.Model,
		Content:   chatResp.Message.Content,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		Cost:      0, // local inference is free
	}, nil
}

func (p *OllamaProvider) resolveBaseURL() string {
	if base := p.baseURL(); base != "" {
		return base
	}
	return defaultOllamaBaseURL
}
