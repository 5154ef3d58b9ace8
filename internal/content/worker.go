// Package content implements the text, video-script and flashcard
// generators. The three share one Worker parameterised by a format spec.
package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/abhisek/lessonloop/internal/bus"
	"github.com/abhisek/lessonloop/internal/llm"
	"github.com/abhisek/lessonloop/internal/preference"
	"github.com/abhisek/lessonloop/internal/teaching"
)

var errNoProvider = errors.New("no LLM provider configured")

// GenerateCall is the payload a content worker receives.
type GenerateCall struct {
	Request       teaching.Request
	Directives    string
	PriorFeedback *teaching.Evaluation
	Attempt       int
}

type formatSpec struct {
	format       preference.Format
	name         string
	schema       *llm.Schema
	system       string
	instructions string
	fallback     func(subject string) teaching.Body
}

var (
	textSpec = formatSpec{
		format:       preference.FormatText,
		name:         TextWorkerName,
		schema:       TextLessonSchema,
		system:       textSystemPrompt,
		instructions: textInstructions,
		fallback:     fallbackText,
	}
	videoSpec = formatSpec{
		format:       preference.FormatVideo,
		name:         VideoWorkerName,
		schema:       VideoScriptSchema,
		system:       videoSystemPrompt,
		instructions: videoInstructions,
		fallback:     fallbackVideo,
	}
	flashcardSpec = formatSpec{
		format:       preference.FormatFlashcards,
		name:         FlashcardWorkerName,
		schema:       FlashcardSetSchema,
		system:       flashcardSystemPrompt,
		instructions: flashcardInstructions,
		fallback:     fallbackFlashcards,
	}
)

// Worker generates one content format. It keeps no state between calls.
type Worker struct {
	spec     formatSpec
	provider llm.Provider
	cfg      Config
	log      zerolog.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the worker's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(w *Worker) { w.log = log }
}

// NewTextWorker creates the written-lesson worker. A nil provider makes
// every candidate a degraded fallback.
func NewTextWorker(provider llm.Provider, cfg Config, opts ...Option) *Worker {
	return newWorker(textSpec, provider, cfg, opts)
}

// NewVideoWorker creates the video-script worker.
func NewVideoWorker(provider llm.Provider, cfg Config, opts ...Option) *Worker {
	return newWorker(videoSpec, provider, cfg, opts)
}

// NewFlashcardWorker creates the flashcard worker.
func NewFlashcardWorker(provider llm.Provider, cfg Config, opts ...Option) *Worker {
	return newWorker(flashcardSpec, provider, cfg, opts)
}

// NewForFormat returns the worker for format, or false if none exists.
func NewForFormat(format preference.Format, provider llm.Provider, cfg Config, opts ...Option) (*Worker, bool) {
	switch format {
	case preference.FormatText:
		return NewTextWorker(provider, cfg, opts...), true
	case preference.FormatVideo:
		return NewVideoWorker(provider, cfg, opts...), true
	case preference.FormatFlashcards:
		return NewFlashcardWorker(provider, cfg, opts...), true
	}
	return nil, false
}

func newWorker(spec formatSpec, provider llm.Provider, cfg Config, opts []Option) *Worker {
	w := &Worker{spec: spec, provider: provider, cfg: cfg, log: zerolog.Nop()}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Name is the worker's default registry name.
func (w *Worker) Name() string { return w.spec.name }

// Format is the content format this worker produces.
func (w *Worker) Format() preference.Format { return w.spec.format }

// Generate always returns a candidate. Provider errors and malformed
// output produce a Degraded fallback instead of an error.
func (w *Worker) Generate(ctx context.Context, call GenerateCall) teaching.Candidate {
	cand := teaching.Candidate{
		ID:      uuid.NewString(),
		Format:  w.spec.format,
		Attempt: max(call.Attempt, 1),
	}

	body, err := w.generate(ctx, call)
	if err != nil {
		w.log.Warn().Err(err).
			Str("worker", w.spec.name).
			Int("attempt", cand.Attempt).
			Msg("content generation degraded to fallback")
		cand.Body = w.spec.fallback(call.Request.Subject())
		cand.Degraded = true
		return cand
	}
	cand.Body = body
	return cand
}

func (w *Worker) generate(ctx context.Context, call GenerateCall) (teaching.Body, error) {
	if w.provider == nil {
		return teaching.Body{}, errNoProvider
	}
	req := llm.Request{
		Purpose: "content-" + string(w.spec.format),
		System:  w.spec.system,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(call, w.spec.instructions)},
		},
		Schema:      w.spec.schema,
		MaxTokens:   w.cfg.MaxTokens,
		Temperature: w.cfg.Temperature,
	}

	resp, err := w.provider.Generate(ctx, req)
	if err != nil {
		return teaching.Body{}, fmt.Errorf("%s generation: %w", w.spec.format, err)
	}
	return ParseCandidateBody(w.spec.format, resp.Content)
}

// Receive adapts Generate to the bus. Only a wrong payload type fails.
func (w *Worker) Receive(ctx context.Context, env bus.Envelope) bus.Result {
	var call GenerateCall
	switch p := env.Payload.(type) {
	case GenerateCall:
		call = p
	case *GenerateCall:
		if p == nil {
			return bus.Fail(bus.ErrWorkerFault, "%s: nil payload", w.spec.name)
		}
		call = *p
	default:
		return bus.Fail(bus.ErrWorkerFault, "%s: unexpected payload %T", w.spec.name, env.Payload)
	}
	return bus.OK(w.Generate(ctx, call))
}

// Fallback builds the degraded candidate a worker for format would return.
// Unknown formats fall back to text.
func Fallback(format preference.Format, subject string, attempt int) teaching.Candidate {
	spec := textSpec
	switch format {
	case preference.FormatVideo:
		spec = videoSpec
	case preference.FormatFlashcards:
		spec = flashcardSpec
	}
	return teaching.Candidate{
		ID:       uuid.NewString(),
		Format:   spec.format,
		Body:     spec.fallback(subject),
		Attempt:  max(attempt, 1),
		Degraded: true,
	}
}

func fallbackText(subject string) teaching.Body {
	return teaching.Body{Text: &teaching.TextLesson{
		Title:       subject,
		Explanation: fmt.Sprintf("A full lesson on %s could not be prepared right now. Start from the definition, then work through one small example by hand.", subject),
		Summary:     "Try again for a complete lesson.",
	}}
}

func fallbackVideo(subject string) teaching.Body {
	return teaching.Body{Video: &teaching.VideoScript{
		Title: subject,
		Scenes: []teaching.Scene{{
			Narration:       fmt.Sprintf("Let's look at %s. A full script could not be prepared right now.", subject),
			Visual:          fmt.Sprintf("Title card reading %q", subject),
			DurationSeconds: 10,
		}},
	}}
}

func fallbackFlashcards(subject string) teaching.Body {
	return teaching.Body{Flashcards: &teaching.FlashcardSet{
		Title: subject,
		Cards: []teaching.Card{{
			Front: fmt.Sprintf("What is %s?", subject),
			Back:  "Write a one-sentence definition in your own words, then check it against your notes.",
		}},
	}}
}
