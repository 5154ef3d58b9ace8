package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// NewOpenAI returns a Remote provider for the OpenAI chat completions API.
// cfg.BaseURL selects any OpenAI-compatible endpoint.
func NewOpenAI(cfg ProviderConfig) (*Remote, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}
	return newChatCompletions(ProviderOpenAI, cfg.APIKey, cfg.BaseURL, ResolveModel(ProviderOpenAI, cfg.Model))
}

// NewOpenRouter returns a Remote provider for OpenRouter's OpenAI-compatible
// endpoint. Model IDs are passed through unmapped.
func NewOpenRouter(cfg ProviderConfig) (*Remote, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openrouter API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	return newChatCompletions(ProviderOpenRouter, cfg.APIKey, baseURL, cfg.Model)
}

func newChatCompletions(name, apiKey, baseURL, model string) (*Remote, error) {
	if model == "" {
		return nil, fmt.Errorf("%s model is required", name)
	}
	conf := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		conf.BaseURL = baseURL
	}
	return &Remote{
		name:    name,
		model:   model,
		backend: &chatBackend{name: name, client: openai.NewClientWithConfig(conf)},
	}, nil
}

type chatBackend struct {
	name   string
	client *openai.Client
}

func (b *chatBackend) send(ctx context.Context, model string, req Request) (reply, error) {
	chat := openai.ChatCompletionRequest{
		Model:               model,
		MaxCompletionTokens: req.MaxTokens,
		Temperature:         float32(req.Temperature),
	}
	if req.System != "" {
		chat.Messages = append(chat.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		chat.Messages = append(chat.Messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	if req.Schema != nil {
		def, err := json.Marshal(req.Schema.Definition)
		if err != nil {
			return reply{}, fmt.Errorf("marshal schema %s: %w", req.Schema.Name, err)
		}
		chat.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: json.RawMessage(def),
				Strict: true,
			},
		}
	}

	resp, err := b.client.CreateChatCompletion(ctx, chat)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return reply{}, classifyStatus(b.name, apiErr.HTTPStatusCode, err)
		}
		return reply{}, err
	}
	if len(resp.Choices) == 0 {
		return reply{}, invalidResponse(nil, errors.New("no choices in reply"))
	}

	choice := resp.Choices[0]
	return reply{
		text:  choice.Message.Content,
		model: resp.Model,
		usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
		truncated: choice.FinishReason == openai.FinishReasonLength,
	}, nil
}
