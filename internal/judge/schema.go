package judge

import "github.com/abhisek/lessonloop/internal/llm"

// EvaluationSchema is the structured output the judge asks for.
var EvaluationSchema = &llm.Schema{
	Name:        "content-evaluation",
	Description: "Per-criterion scores and improvement notes for a piece of teaching content",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"scores": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"criterion": map[string]any{
							"type":        "string",
							"description": "Criterion name exactly as given in the rubric",
						},
						"score": map[string]any{
							"type":        "integer",
							"minimum":     0,
							"maximum":     100,
							"description": "Score for this criterion, 0-100",
						},
						"feedback": map[string]any{
							"type":        "string",
							"description": "One sentence explaining the score",
						},
					},
					"required":             []any{"criterion", "score", "feedback"},
					"additionalProperties": false,
				},
				"description": "One entry per rubric criterion",
			},
			"improvements": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Concrete changes that would raise the score; empty if none",
			},
		},
		"required":             []any{"scores", "improvements"},
		"additionalProperties": false,
	},
}
