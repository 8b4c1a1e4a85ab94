package provider

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// GoogleProvider implements the Provider interface for Gemini models.
type GoogleProvider struct {
	key     KeyFunc
	pricing PriceTable
}

// NewGoogle creates a Google Gemini provider. The key is read on every call.
func NewGoogle(key KeyFunc, pricing PriceTable) *GoogleProvider {
	if pricing == nil {
		pricing = DefaultPriceTable()
	}
	return &GoogleProvider{key: key, pricing: pricing}
}

// Name returns the provider family identifier.
func (p *GoogleProvider) Name() string {
	return FamilyGoogle
}

// Generate sends the request to the Gemini API.
func (p *GoogleProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	apiKey := p.key()
	if apiKey == "" {
		return nil, &Error{Provider: p.Name(), Status: 401, Err: fmt.Errorf("google API key is required")}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("failed to create client: %w", err)}
	}

	var cfg *genai.GenerateContentConfig
	if req.System != "" || req.Temperature > 0 || req.MaxTokens > 0 {
		cfg = &genai.GenerateContentConfig{}
		if req.System != "" {
			cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
		}
		if req.Temperature > 0 {
			cfg.Temperature = genai.Ptr(float32(req.Temperature))
		}
		if req.MaxTokens > 0 {
			cfg.MaxOutputTokens = int32(req.MaxTokens)
		}
	}

	prompt := req.Prompt
	for i := len(req.History) - 1; i >= 0; i-- {
		// The single-shot text helper carries no history; fold prior turns
		// into the prompt oldest-first.
		prompt = flattenMessage(req.History[i]) + "\n" + prompt
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(prompt), cfg)
	if err != nil {
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("generate content failed: %w", err)}
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("no candidates returned")}
	}

	var content string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
		}
	}

	tokensIn := EstimateTokens(prompt)
	tokensOut := EstimateTokens(content)
	if resp.UsageMetadata != nil {
		tokensIn = int(resp.UsageMetadata.PromptTokenCount)
		tokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return &Response{
		ID:        uuid.NewString(),
		Model:     req.Model,
		Content:   content,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		Cost:      p.pricing.Cost(req.Model, tokensIn, tokensOut),
	}, nil
}
