package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/lessonloop/internal/store"
)

// RecordEvents appends every call, successful or not, to the event log
// and emits a debug line through the context logger. A failed append is
// logged and never fails the call.
func RecordEvents(provider string, events store.EventRepo) Middleware {
	return func(p Provider) Provider {
		return &wrapped{inner: p, generate: func(ctx context.Context, req Request) (*Response, error) {
			start := time.Now()
			resp, err := p.Generate(ctx, req)
			elapsed := time.Since(start)

			ev := store.LLMRequestEventData{
				Provider:    provider,
				Model:       p.ModelID(),
				Purpose:     req.Label(),
				LatencyMs:   elapsed.Milliseconds(),
				Success:     err == nil,
				RequestBody: transcript(req),
			}
			if resp != nil {
				ev.Model = resp.Model
				ev.InputTokens = resp.Usage.InputTokens
				ev.OutputTokens = resp.Usage.OutputTokens
				ev.ResponseBody = string(resp.Content)
			}
			if err != nil {
				ev.ErrorMessage = err.Error()
				var e *Error
				if errors.As(err, &e) && len(e.Content) > 0 {
					ev.ResponseBody = string(e.Content)
				}
			}

			log := zerolog.Ctx(ctx)
			log.Debug().
				Str("purpose", ev.Purpose).
				Str("model", ev.Model).
				Dur("latency", elapsed).
				Int("input_tokens", ev.InputTokens).
				Int("output_tokens", ev.OutputTokens).
				Bool("success", ev.Success).
				Msg("llm request")

			// WithoutCancel keeps the record when the caller's deadline
			// expired mid-call.
			if appendErr := events.AppendLLMRequest(context.WithoutCancel(ctx), ev); appendErr != nil {
				log.Warn().Err(appendErr).Msg("failed to record llm request event")
			}
			return resp, err
		}}
	}
}

// transcript renders req for the event log.
func transcript(req Request) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}
