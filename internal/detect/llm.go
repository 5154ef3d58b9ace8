package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/abhisek/lessonloop/internal/llm"
	"github.com/abhisek/lessonloop/internal/preference"
)

// SignalSchema is the structured output for the LLM phase. Every field is
// required; "none" and "unspecified" stand for no signal.
var SignalSchema = &llm.Schema{
	Name:        "preference-signals",
	Description: "Implicit learning preference signals in a learner message",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"format_request": map[string]any{
				"type": "string",
				"enum": []any{"text", "video", "flashcards", "none"},
			},
			"rejected_formats": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "string",
					"enum": []any{"text", "video", "flashcards"},
				},
			},
			"explanation_style": map[string]any{
				"type": "string",
				"enum": []any{"concise", "detailed", "balanced", "none"},
			},
			"pace": map[string]any{
				"type": "string",
				"enum": []any{"slow", "normal", "fast", "none"},
			},
			"complexity": map[string]any{
				"type": "string",
				"enum": []any{"beginner", "intermediate", "advanced", "none"},
			},
			"wants_examples":  triState,
			"wants_analogies": triState,
			"wants_exercises": triState,
			"stuck": map[string]any{
				"type":        "boolean",
				"description": "True if the learner seems confused or is repeating a question",
			},
			"confidence": map[string]any{
				"type":        "integer",
				"description": "0-100 confidence that the signals above are real",
			},
		},
		"required": []any{
			"format_request", "rejected_formats", "explanation_style", "pace",
			"complexity", "wants_examples", "wants_analogies", "wants_exercises",
			"stuck", "confidence",
		},
		"additionalProperties": false,
	},
}

var triState = map[string]any{
	"type": "string",
	"enum": []any{"yes", "no", "unspecified"},
}

type signalOutput struct {
	FormatRequest    string   `json:"format_request"`
	RejectedFormats  []string `json:"rejected_formats"`
	ExplanationStyle string   `json:"explanation_style"`
	Pace             string   `json:"pace"`
	Complexity       string   `json:"complexity"`
	WantsExamples    string   `json:"wants_examples"`
	WantsAnalogies   string   `json:"wants_analogies"`
	WantsExercises   string   `json:"wants_exercises"`
	Stuck            bool     `json:"stuck"`
	Confidence       int      `json:"confidence"`
}

const detectSystemPrompt = `You detect learning preferences in a learner's chat message. Report only signals the learner actually expressed, directly or by clear implication. When unsure, answer "none" or "unspecified".`

func buildDetectMessage(call DetectCall) string {
	var b strings.Builder
	b.WriteString("Current preferences:\n")
	c := call.Current
	b.WriteString(fmt.Sprintf("- format: %s\n- explanation_style: %s\n- pace: %s\n- complexity: %s\n", c.Format, c.ExplanationStyle, c.Pace, c.Complexity))
	b.WriteString(fmt.Sprintf("- examples: %t, analogies: %t, exercises: %t\n", c.WantsExamples, c.WantsAnalogies, c.WantsExercises))

	if len(call.History) > 0 {
		b.WriteString("\nRecent conversation:\n")
		turns := call.History
		if len(turns) > 4 {
			turns = turns[len(turns)-4:]
		}
		for _, t := range turns {
			b.WriteString(fmt.Sprintf("- %s: %s\n", t.Role, t.Content))
		}
	}

	b.WriteString(fmt.Sprintf("\nLearner message:\n%s\n", call.Message))
	return b.String()
}

func (d *Detector) detectLLM(ctx context.Context, call DetectCall) (*signalOutput, error) {
	resp, err := d.provider.Generate(ctx, llm.Request{
		Purpose: "preference-detect",
		System:  detectSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildDetectMessage(call)},
		},
		Schema:      SignalSchema,
		MaxTokens:   d.cfg.MaxTokens,
		Temperature: d.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM detection failed: %w", err)
	}

	var out signalOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("parse detection response: %w", err)
	}
	out.Confidence = min(max(out.Confidence, 0), 100)
	return &out, nil
}

// mergeLLM folds LLM signals into r for fields the rules left alone and
// reports whether anything was taken.
func mergeLLM(r *ruleResult, out *signalOutput) bool {
	took := false
	touched := r.delta.Touched()
	untouched := func(f preference.Field) bool { return !slices.Contains(touched, f) }

	if !r.formatTouched() {
		for _, s := range out.RejectedFormats {
			if f, ok := preference.ParseFormat(s); ok {
				r.reject(f)
				took = true
			}
		}
		if f, ok := preference.ParseFormat(out.FormatRequest); ok && !slices.Contains(r.rejected, f) {
			r.requested = f
			took = true
		}
	}
	if s := preference.ExplanationStyle(out.ExplanationStyle); s.Valid() && untouched(preference.FieldExplanationStyle) {
		r.delta.SetExplanationStyle(s)
		took = true
	}
	if p := preference.Pace(out.Pace); p.Valid() && untouched(preference.FieldPace) {
		r.delta.SetPace(p)
		took = true
	}
	if c := preference.Complexity(out.Complexity); c.Valid() && untouched(preference.FieldComplexity) {
		r.delta.SetComplexity(c)
		took = true
	}
	if v, ok := parseTriState(out.WantsExamples); ok && untouched(preference.FieldWantsExamples) {
		r.delta.SetWantsExamples(v)
		took = true
	}
	if v, ok := parseTriState(out.WantsAnalogies); ok && untouched(preference.FieldWantsAnalogies) {
		r.delta.SetWantsAnalogies(v)
		took = true
	}
	if v, ok := parseTriState(out.WantsExercises); ok && untouched(preference.FieldWantsExercises) {
		r.delta.SetWantsExercises(v)
		took = true
	}
	if out.Stuck && !r.stuck {
		r.stuck = true
		took = true
	}
	return took
}

func parseTriState(s string) (bool, bool) {
	switch s {
	case "yes":
		return true, true
	case "no":
		return false, true
	}
	return false, false
}
