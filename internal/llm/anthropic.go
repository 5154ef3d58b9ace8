package llm

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// NewAnthropic returns a Remote provider for the Anthropic Messages API.
func NewAnthropic(cfg ProviderConfig) (*Remote, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	// Retries belong to the Retry middleware.
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Remote{
		name:    ProviderAnthropic,
		model:   ResolveModel(ProviderAnthropic, cfg.Model),
		backend: &anthropicBackend{client: anthropic.NewClient(opts...)},
	}, nil
}

type anthropicBackend struct {
	client anthropic.Client
}

func (b *anthropicBackend) send(ctx context.Context, model string, req Request) (reply, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  make([]anthropic.MessageParam, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		role := anthropic.MessageParamRoleUser
		if m.Role == RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		params.Messages = append(params.Messages, anthropic.MessageParam{
			Role:    role,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(m.Content)},
		})
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if req.Schema != nil {
		params.OutputConfig = anthropic.OutputConfigParam{
			Format: anthropic.JSONOutputFormatParam{Schema: req.Schema.Definition},
		}
	}

	msg, err := b.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return reply{}, classifyStatus(ProviderAnthropic, apiErr.StatusCode, err)
		}
		return reply{}, err
	}

	out := reply{
		model: string(msg.Model),
		usage: Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
		truncated: msg.StopReason == anthropic.StopReasonMaxTokens,
	}
	for _, block := range msg.Content {
		if block.Type == "text" {
			out.text = block.Text
			return out, nil
		}
	}
	return out, invalidResponse(nil, errors.New("no text block in reply"))
}
