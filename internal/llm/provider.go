// Package llm talks to hosted language models. Every vendor is reached
// through the same Provider interface and returns schema-validated JSON;
// retry, timeout and event logging are layered on as middleware.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Provider is the core abstraction for LLM interaction.
type Provider interface {
	// Generate sends req and returns the reply. When req.Schema is set the
	// reply Content is JSON that validates against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// Purpose labels the call in the event log, e.g. "judge". Empty falls
	// back to the schema name.
	Purpose string

	System string

	// Messages is the conversation. Workers fold prior turns into one
	// composed user message so every vendor sees a user-first log.
	Messages []Message

	// Schema, when set, asks the vendor for structured output.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

// Label returns Purpose, the schema name, or "unknown".
func (r Request) Label() string {
	switch {
	case r.Purpose != "":
		return r.Purpose
	case r.Schema != nil:
		return r.Schema.Name
	}
	return "unknown"
}

// Message is a single conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema for structured output.
type Schema struct {
	// Name is kebab-case, e.g. "text-lesson". Anthropic and OpenAI receive
	// it as the tool or schema name; the validator caches by it.
	Name        string
	Description string
	Definition  map[string]any
}

// Response holds the LLM's output.
type Response struct {
	// Content is validated JSON when the request had a Schema, otherwise
	// the raw reply text.
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason string
}

// Stop reasons reported in Response.StopReason.
const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
)

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// reply is a backend's raw answer.
type reply struct {
	text      string
	model     string
	usage     Usage
	truncated bool
}

// backend is the vendor-specific half of a Remote provider.
type backend interface {
	send(ctx context.Context, model string, req Request) (reply, error)
}

// Remote is a Provider backed by a vendor API. It owns what every vendor
// shares: error classification, truncation, JSON extraction and schema
// validation.
type Remote struct {
	name    string
	model   string
	backend backend
}

// Name returns the vendor name, e.g. "anthropic".
func (r *Remote) Name() string { return r.name }

func (r *Remote) ModelID() string { return r.model }

func (r *Remote) Generate(ctx context.Context, req Request) (*Response, error) {
	out, err := r.backend.send(ctx, r.model, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var e *Error
		if errors.As(err, &e) {
			if e.Provider == "" {
				e.Provider = r.name
			}
			return nil, e
		}
		return nil, Unavailable(r.name, err)
	}

	content := json.RawMessage(out.text)
	if out.truncated {
		return nil, &Error{Kind: KindTruncated, Provider: r.name, Content: content}
	}
	if req.Schema != nil {
		extracted, ok := ExtractJSON(content)
		if !ok {
			return nil, &Error{Kind: KindInvalidResponse, Provider: r.name, Content: content, Err: errors.New("no JSON object in reply")}
		}
		content = extracted
		if err := req.Schema.Validate(content); err != nil {
			var e *Error
			if errors.As(err, &e) {
				e.Provider = r.name
			}
			return nil, err
		}
	}

	model := out.model
	if model == "" {
		model = r.model
	}
	usage := out.usage
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	return &Response{Content: content, Usage: usage, Model: model, StopReason: StopEnd}, nil
}
