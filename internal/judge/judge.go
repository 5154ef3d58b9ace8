// Package judge scores generated content against a weighted rubric. It
// asks an LLM for per-criterion scores and falls back to a capped
// heuristic when the model is unavailable or its answer is unusable.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/abhisek/lessonloop/internal/bus"
	"github.com/abhisek/lessonloop/internal/llm"
	"github.com/abhisek/lessonloop/internal/preference"
	"github.com/abhisek/lessonloop/internal/teaching"
)

// WorkerName is the judge's registry name.
const WorkerName = "judge"

// Config holds judge settings.
type Config struct {
	Rubric        Rubric
	PassThreshold int
	MaxTokens     int
	Temperature   float64
}

// DefaultConfig returns the stock rubric and threshold.
func DefaultConfig() Config {
	return Config{
		Rubric:        DefaultRubric(),
		PassThreshold: DefaultPassThreshold,
		MaxTokens:     600,
		Temperature:   0.2,
	}
}

// EvaluateCall is the payload the judge receives.
type EvaluateCall struct {
	Candidate   teaching.Candidate
	Request     teaching.Request
	Preferences preference.Snapshot
}

// Judge evaluates candidates.
type Judge struct {
	provider llm.Provider
	cfg      Config
	log      zerolog.Logger
}

// Option configures a Judge.
type Option func(*Judge)

// WithLogger sets the judge's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(j *Judge) { j.log = log }
}

// New creates a judge. provider may be nil, in which case every
// evaluation is heuristic.
func New(provider llm.Provider, cfg Config, opts ...Option) (*Judge, error) {
	if cfg.Rubric == nil {
		cfg.Rubric = DefaultRubric()
	}
	if err := cfg.Rubric.Validate(); err != nil {
		return nil, fmt.Errorf("judge: %w", err)
	}
	if cfg.PassThreshold < 0 || cfg.PassThreshold > 100 {
		return nil, fmt.Errorf("judge: pass threshold %d outside 0..100", cfg.PassThreshold)
	}
	j := &Judge{provider: provider, cfg: cfg, log: zerolog.Nop()}
	for _, o := range opts {
		o(j)
	}
	return j, nil
}

// Rubric returns the rubric the judge scores against.
func (j *Judge) Rubric() Rubric { return j.cfg.Rubric }

type scoreOutput struct {
	Criterion string `json:"criterion"`
	Score     int    `json:"score"`
	Feedback  string `json:"feedback"`
}

type evaluationOutput struct {
	Scores       []scoreOutput `json:"scores"`
	Improvements []string      `json:"improvements"`
}

// Evaluate always returns an Evaluation. Degraded candidates skip the LLM.
func (j *Judge) Evaluate(ctx context.Context, call EvaluateCall) teaching.Evaluation {
	if call.Candidate.Degraded {
		return heuristicEvaluation(call, j.cfg.Rubric, j.cfg.PassThreshold, "")
	}
	if j.provider == nil {
		return heuristicEvaluation(call, j.cfg.Rubric, j.cfg.PassThreshold, "no LLM provider configured")
	}

	eval, err := j.evaluateLLM(ctx, call)
	if err != nil {
		j.log.Warn().Err(err).
			Str("candidate", call.Candidate.ID).
			Msg("judge falling back to heuristic")
		return heuristicEvaluation(call, j.cfg.Rubric, j.cfg.PassThreshold, err.Error())
	}
	return eval
}

func (j *Judge) evaluateLLM(ctx context.Context, call EvaluateCall) (teaching.Evaluation, error) {
	userMsg, err := buildJudgeMessage(call, j.cfg.Rubric)
	if err != nil {
		return teaching.Evaluation{}, fmt.Errorf("build judge prompt: %w", err)
	}

	resp, err := j.provider.Generate(ctx, llm.Request{
		Purpose: "judge",
		System:  judgeSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: userMsg},
		},
		Schema:      EvaluationSchema,
		MaxTokens:   j.cfg.MaxTokens,
		Temperature: j.cfg.Temperature,
	})
	if err != nil {
		return teaching.Evaluation{}, fmt.Errorf("LLM evaluation failed: %w", err)
	}

	var out evaluationOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return teaching.Evaluation{}, fmt.Errorf("parse evaluation response: %w", err)
	}

	byName := make(map[string]scoreOutput, len(out.Scores))
	for _, s := range out.Scores {
		byName[strings.ToLower(strings.TrimSpace(s.Criterion))] = s
	}

	breakdown := make([]teaching.CriterionScore, len(j.cfg.Rubric))
	for i, c := range j.cfg.Rubric {
		s, ok := byName[strings.ToLower(c.Name)]
		if !ok {
			return teaching.Evaluation{}, fmt.Errorf("evaluation missing criterion %q", c.Name)
		}
		breakdown[i] = teaching.CriterionScore{
			Criterion: c.Name,
			Weight:    c.Weight,
			Score:     clamp(s.Score, 0, 100),
			Feedback:  s.Feedback,
		}
	}

	var improvements []string
	for _, imp := range out.Improvements {
		if imp = strings.TrimSpace(imp); imp != "" {
			improvements = append(improvements, imp)
		}
	}
	return NewEvaluation(breakdown, improvements, j.cfg.PassThreshold, false), nil
}

// Receive adapts Evaluate to the bus.
func (j *Judge) Receive(ctx context.Context, env bus.Envelope) bus.Result {
	switch p := env.Payload.(type) {
	case EvaluateCall:
		return bus.OK(j.Evaluate(ctx, p))
	case *EvaluateCall:
		if p != nil {
			return bus.OK(j.Evaluate(ctx, *p))
		}
	}
	return bus.Fail(bus.ErrWorkerFault, "judge: unexpected payload %T", env.Payload)
}
