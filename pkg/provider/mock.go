package provider

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// MockProvider returns deterministic responses for local runs and tests.
type MockProvider struct {
	responses       map[string]string
	defaultResponse string
	err             error
	local           bool
}

// NewMock creates a mock provider with a default response.
func NewMock() *MockProvider {
	return &MockProvider{
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
}

// NewMockWithResponses creates a mock provider with predefined responses.
func NewMockWithResponses(responses map[string]string, defaultResponse string) *MockProvider {
	if defaultResponse == "" {
		defaultResponse = "mock response:"
	}
	return &MockProvider{responses: responses, defaultResponse: defaultResponse}
}

// NewMockWithError creates a mock provider that always fails.
func NewMockWithError(err error) *MockProvider {
	return &MockProvider{err: err}
}

// Name returns the provider family identifier.
func (p *MockProvider) Name() string {
	return FamilyMock
}

// MarkLocal makes the mock report as a healthy local provider.
func (p *MockProvider) MarkLocal() *MockProvider {
	p.local = true
	return p
}

// Healthy reports true when the mock was marked local.
func (p *MockProvider) Healthy(context.Context) bool {
	return p.local
}

// Generate returns a deterministic response for the prompt.
func (p *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	if p.err != nil {
		return nil, p.err
	}
	content, ok := p.responses[req.Prompt]
	if !ok {
		content = fmt.Sprintf("%s\n%s", p.defaultResponse, req.Prompt)
	}
	return &Response{
		ID:        uuid.NewString(),
		Model:     req.Model,
		Content:   content,
		TokensIn:  EstimateTokens(req.Prompt),
		TokensOut: EstimateTokens(content),
		Cost:      0,
	}, nil
}
