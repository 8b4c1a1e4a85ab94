package provider

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements the Provider interface for messages-style
// hosted models.
type AnthropicProvider struct {
	key     KeyFunc
	pricing PriceTable
}

// NewAnthropic creates an Anthropic provider. The key is read on every call.
func NewAnthropic(key KeyFunc, pricing PriceTable) *AnthropicProvider {
	if pricing == nil {
		pricing = DefaultPriceTable()
	}
	return &AnthropicProvider{key: key, pricing: pricing}
}

// Name returns the provider family identifier.
func (p *AnthropicProvider) Name() string {
	return FamilyAnthropic
}

// Generate sends the request to the messages API. Multi-turn history is
// validated first: the messages API rejects an assistant tool invocation
// with no following tool result, so missing results are synthesized.
func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	apiKey := p.key()
	if apiKey == "" {
		return nil, &Error{Provider: p.Name(), Status: 401, Err: fmt.Errorf("anthropic API key is required")}
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	history := RepairHistory(req.History)
	messages := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, msg := range history {
		switch msg.Role {
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(flattenMessage(msg))))
		default:
			// Tool result turns go back as user turns in the messages API.
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(flattenMessage(msg))))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)))

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("messages call failed: %w", err)}
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	tokensIn := int(resp.Usage.InputTokens)
	tokensOut := int(resp.Usage.OutputTokens)
	if tokensIn == 0 && tokensOut == 0 {
		tokensIn = EstimateTokens(req.Prompt)
		tokensOut = EstimateTokens(content)
	}

	return &Response{
		ID:        resp.ID,
		Model:     req.Model,
		Content:   content,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		Cost:      p.pricing.Cost(req.Model, tokensIn, tokensOut),
	}, nil
}
