package content

import "github.com/abhisek/lessonloop/internal/llm"

// TextLessonSchema is the structured output for the text worker.
var TextLessonSchema = &llm.Schema{
	Name:        "text-lesson",
	Description: "A written lesson with explanation, example, analogy, and exercises",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Short title for the lesson (3-8 words)",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "The core explanation, shaped by the style directives",
			},
			"worked_example": map[string]any{
				"type":        "string",
				"description": "A concrete worked example, or empty if examples are not wanted",
			},
			"analogy": map[string]any{
				"type":        "string",
				"description": "An everyday analogy, or empty if analogies are not wanted",
			},
			"exercises": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Practice exercises, or an empty list if exercises are not wanted",
			},
			"summary": map[string]any{
				"type":        "string",
				"description": "One or two sentence recap",
			},
		},
		"required":             []any{"title", "explanation", "worked_example", "analogy", "exercises", "summary"},
		"additionalProperties": false,
	},
}

// VideoScriptSchema is the structured output for the video worker.
var VideoScriptSchema = &llm.Schema{
	Name:        "video-script",
	Description: "A scene-by-scene script for a short explainer video",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Video title (3-8 words)",
			},
			"scenes": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"narration": map[string]any{
							"type":        "string",
							"description": "What the narrator says during the scene",
						},
						"visual": map[string]any{
							"type":        "string",
							"description": "What is shown on screen",
						},
						"duration_seconds": map[string]any{
							"type":        "integer",
							"description": "Scene length in seconds",
						},
					},
					"required":             []any{"narration", "visual", "duration_seconds"},
					"additionalProperties": false,
				},
				"description": "Ordered scenes, 3-8 for most topics",
			},
		},
		"required":             []any{"title", "scenes"},
		"additionalProperties": false,
	},
}

// FlashcardSetSchema is the structured output for the flashcard worker.
var FlashcardSetSchema = &llm.Schema{
	Name:        "flashcard-set",
	Description: "A deck of question and answer flashcards on one topic",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Deck title (3-8 words)",
			},
			"cards": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"front": map[string]any{
							"type":        "string",
							"description": "Question or prompt side",
						},
						"back": map[string]any{
							"type":        "string",
							"description": "Answer side, one or two sentences",
						},
					},
					"required":             []any{"front", "back"},
					"additionalProperties": false,
				},
				"description": "Cards ordered from foundational to advanced, 5-12 for most topics",
			},
		},
		"required":             []any{"title", "cards"},
		"additionalProperties": false,
	},
}
