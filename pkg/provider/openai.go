package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements the Provider interface for chat-completion
// style hosted models.
type OpenAIProvider struct {
	key     KeyFunc
	pricing PriceTable
}

// NewOpenAI creates an OpenAI provider. The key is read on every call.
func NewOpenAI(key KeyFunc, pricing PriceTable) *OpenAIProvider {
	if pricing == nil {
		pricing = DefaultPriceTable()
	}
	return &OpenAIProvider{key: key, pricing: pricing}
}

// Name returns the provider family identifier.
func (p *OpenAIProvider) Name() string {
	return FamilyOpenAI
}

// Generate sends the request to the chat completions API.
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	apiKey := p.key()
	if apiKey == "" {
		return nil, &Error{Provider: p.Name(), Status: 401, Err: fmt.Errorf("openai API key is required")}
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, msg := range req.History {
		switch msg.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(flattenMessage(msg)))
		default:
			messages = append(messages, openai.UserMessage(flattenMessage(msg)))
		}
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("chat completion failed: %w", err)}
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("no choices returned")}
	}

	content := resp.Choices[0].Message.Content
	tokensIn := int(resp.Usage.PromptTokens)
	tokensOut := int(resp.Usage.CompletionTokens)
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
