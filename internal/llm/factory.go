package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/lessonloop/internal/store"
)

// NewProvider builds the configured Provider as
// timeout → retry → event log → vendor. It returns (nil, nil) for
// ProviderNone; callers treat a nil Provider as "no LLM available".
// events may be nil.
func NewProvider(ctx context.Context, cfg Config, events store.EventRepo) (Provider, error) {
	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case ProviderNone:
		return nil, nil
	case ProviderMock:
		return NewMockProvider(), nil
	case ProviderAnthropic:
		base, err = NewAnthropic(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAI(cfg.OpenAI)
	case ProviderOpenRouter:
		base, err = NewOpenRouter(cfg.OpenRouter)
	case ProviderGemini:
		base, err = NewGemini(ctx, cfg.Gemini)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	var mws []Middleware
	if cfg.Timeout > 0 {
		mws = append(mws, Timeout(cfg.Timeout))
	}
	mws = append(mws, Retry(cfg.Retry))
	if events != nil {
		mws = append(mws, RecordEvents(cfg.Provider, events))
	}
	return Chain(base, mws...), nil
}
