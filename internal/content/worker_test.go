package content

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lessonloop/internal/bus"
	"github.com/abhisek/lessonloop/internal/llm"
	"github.com/abhisek/lessonloop/internal/preference"
	"github.com/abhisek/lessonloop/internal/teaching"
)

const textLessonJSON = `{
	"title": "Recursion in a nutshell",
	"explanation": "A recursive function solves a problem by calling itself on a smaller input until it reaches a base case.",
	"worked_example": "factorial(3) = 3 * factorial(2) = 3 * 2 * factorial(1) = 6",
	"analogy": "Like Russian dolls, each one holds a smaller copy until the last solid doll.",
	"exercises": ["Write sum(n) recursively.", "  "],
	"summary": "Shrink the problem, stop at the base case."
}`

const flashcardJSON = `{
	"title": "Recursion basics",
	"cards": [
		{"front": "What is a base case?", "back": "The input that stops the recursion."},
		{"front": "What happens without one?", "back": "The calls never end and the stack overflows."}
	]
}`

const videoJSON = `{
	"title": "Recursion explained",
	"scenes": [
		{"narration": "Meet factorial.", "visual": "3! on a whiteboard", "duration_seconds": 15},
		{"narration": "It calls itself.", "visual": "Arrows to 2! and 1!", "duration_seconds": 20}
	]
}`

func testRequest() teaching.Request {
	return teaching.Request{
		UserID:  "ada",
		Message: "Explain recursion",
		History: []teaching.PriorTurn{{Role: "user", Content: "I am learning Go"}},
	}
}

func TestGenerateText(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(textLessonJSON)})
	w := NewTextWorker(mock, DefaultConfig())

	cand := w.Generate(context.Background(), GenerateCall{
		Request:    testRequest(),
		Directives: "Use a concise explanation style.",
		Attempt:    1,
	})

	assert.False(t, cand.Degraded)
	assert.Equal(t, preference.FormatText, cand.Format)
	assert.Equal(t, 1, cand.Attempt)
	assert.NotEmpty(t, cand.ID)
	require.NotNil(t, cand.Body.Text)
	assert.Equal(t, "Recursion in a nutshell", cand.Body.Text.Title)
	assert.Equal(t, []string{"Write sum(n) recursively."}, cand.Body.Text.Exercises)

	require.Equal(t, 1, mock.CallCount())
	call := mock.Calls()[0]
	assert.Equal(t, TextLessonSchema, call.Schema)
	require.Len(t, call.Messages, 1)
	prompt := call.Messages[0].Content
	assert.Contains(t, prompt, "Subject: Explain recursion")
	assert.Contains(t, prompt, "Use a concise explanation style.")
	assert.Contains(t, prompt, "I am learning Go")
	assert.NotContains(t, prompt, "previous draft")
}

func TestGenerateEachFormat(t *testing.T) {
	tests := []struct {
		format preference.Format
		body   string
		check  func(t *testing.T, b teaching.Body)
	}{
		{preference.FormatVideo, videoJSON, func(t *testing.T, b teaching.Body) {
			require.NotNil(t, b.Video)
			assert.Equal(t, 35, b.Video.TotalSeconds())
		}},
		{preference.FormatFlashcards, flashcardJSON, func(t *testing.T, b teaching.Body) {
			require.NotNil(t, b.Flashcards)
			assert.Len(t, b.Flashcards.Cards, 2)
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(tt.body)})
			w, ok := NewForFormat(tt.format, mock, DefaultConfig())
			require.True(t, ok)

			cand := w.Generate(context.Background(), GenerateCall{Request: testRequest(), Attempt: 2})
			assert.False(t, cand.Degraded)
			assert.Equal(t, tt.format, cand.Format)
			assert.Equal(t, tt.format, cand.Body.Format())
			assert.Equal(t, 2, cand.Attempt)
			tt.check(t, cand.Body)
		})
	}
}

func TestGenerateIncludesPriorFeedback(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(flashcardJSON)})
	w := NewFlashcardWorker(mock, DefaultConfig())

	fb := &teaching.Evaluation{
		TotalScore:   52,
		Improvements: []string{"Cover tail recursion"},
		Breakdown: []teaching.CriterionScore{
			{Criterion: "Accuracy", Weight: 30, Score: 40, Feedback: "Card 2 is wrong"},
			{Criterion: "Clarity", Weight: 25, Score: 80},
		},
	}
	w.Generate(context.Background(), GenerateCall{Request: testRequest(), PriorFeedback: fb, Attempt: 2})

	prompt := mock.Calls()[0].Messages[0].Content
	assert.Contains(t, prompt, "scored 52/100")
	assert.Contains(t, prompt, "attempt 2")
	assert.Contains(t, prompt, "Cover tail recursion")
	assert.Contains(t, prompt, "Accuracy (40/100): Card 2 is wrong")
	assert.NotContains(t, prompt, "Clarity (80/100)")
}

func TestGenerateDegradesOnFailure(t *testing.T) {
	tests := []struct {
		name     string
		provider llm.Provider
	}{
		{"nil provider", nil},
		{"provider error", llm.NewMockProvider(llm.MockResponse{Err: llm.Unavailable("test", errors.New("down"))})},
		{"missing scenes", llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"title":"x","scenes":[]}`)})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewVideoWorker(tt.provider, DefaultConfig())
			cand := w.Generate(context.Background(), GenerateCall{Request: testRequest(), Attempt: 0})

			assert.True(t, cand.Degraded)
			assert.Equal(t, preference.FormatVideo, cand.Format)
			assert.Equal(t, 1, cand.Attempt, "attempt is normalized to at least 1")
			require.NotNil(t, cand.Body.Video)
			assert.Equal(t, "Explain recursion", cand.Body.Video.Title)
		})
	}
}

func TestGenerateDoesNotMutateRequest(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(textLessonJSON)})
	w := NewTextWorker(mock, DefaultConfig())

	req := testRequest()
	req.Lesson = &teaching.LessonContext{Title: "Functions", Topic: "recursion"}
	before, err := json.Marshal(req)
	require.NoError(t, err)

	w.Generate(context.Background(), GenerateCall{Request: req, Attempt: 1})

	after, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestGenerateTrimsLongHistory(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(textLessonJSON)})
	w := NewTextWorker(mock, DefaultConfig())

	req := testRequest()
	req.History = nil
	for i := 0; i < maxHistoryInPrompt+3; i++ {
		req.History = append(req.History, teaching.PriorTurn{Role: "user", Content: "turn-" + strings.Repeat("x", i)})
	}
	w.Generate(context.Background(), GenerateCall{Request: req, Attempt: 1})

	prompt := mock.Calls()[0].Messages[0].Content
	assert.Equal(t, maxHistoryInPrompt, strings.Count(prompt, "- user: turn-"))
}

func TestReceive(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(textLessonJSON)})
	w := NewTextWorker(mock, DefaultConfig())

	res := w.Receive(context.Background(), bus.Envelope{Payload: GenerateCall{Request: testRequest(), Attempt: 1}})
	require.True(t, res.OK)
	cand, ok := res.Data.(teaching.Candidate)
	require.True(t, ok)
	assert.False(t, cand.Degraded)

	res = w.Receive(context.Background(), bus.Envelope{Payload: "teach me"})
	assert.False(t, res.OK)
	assert.Equal(t, bus.ErrWorkerFault, res.Err)

	var nilCall *GenerateCall
	res = w.Receive(context.Background(), bus.Envelope{Payload: nilCall})
	assert.Equal(t, bus.ErrWorkerFault, res.Err)
}

func TestNewForFormatUnknown(t *testing.T) {
	_, ok := NewForFormat("podcast", nil, DefaultConfig())
	assert.False(t, ok)
}

func TestWorkerNames(t *testing.T) {
	assert.Equal(t, "text-worker", NewTextWorker(nil, DefaultConfig()).Name())
	assert.Equal(t, "video-worker", NewVideoWorker(nil, DefaultConfig()).Name())
	assert.Equal(t, "flashcard-worker", NewFlashcardWorker(nil, DefaultConfig()).Name())
}

func TestFallback(t *testing.T) {
	c := Fallback(preference.FormatVideo, "recursion", 0)
	assert.True(t, c.Degraded)
	assert.Equal(t, 1, c.Attempt)
	assert.Equal(t, preference.FormatVideo, c.Format)
	require.NotNil(t, c.Body.Video)
	assert.Equal(t, "recursion", c.Body.Video.Title)

	c = Fallback("podcast", "recursion", 2)
	assert.Equal(t, preference.FormatText, c.Format)
	require.NotNil(t, c.Body.Text)
}
