package teaching

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/lessonloop/internal/preference"
)

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr string
	}{
		{"ok message", Request{UserID: "u1", Message: "teach me recursion"}, ""},
		{"ok lesson only", Request{UserID: "u1", Lesson: &LessonContext{Topic: "recursion"}}, ""},
		{"missing user", Request{Message: "hi"}, "user id is required"},
		{"nothing to teach", Request{UserID: "u1"}, "message or lesson is required"},
		{"empty lesson", Request{UserID: "u1", Lesson: &LessonContext{}}, "lesson needs a title or topic"},
		{"too long", Request{UserID: "u1", Message: strings.Repeat("x", MaxMessageLength+1)}, "message too long"},
		{"bad role", Request{UserID: "u1", Message: "hi", History: []PriorTurn{{Role: "system", Content: "x"}}}, "history role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRequestSubject(t *testing.T) {
	assert.Equal(t, "loops", Request{Message: "loops"}.Subject())
	assert.Equal(t, "closures", Request{Message: "x", Lesson: &LessonContext{Title: "T", Topic: "closures"}}.Subject())
	assert.Equal(t, "T", Request{Lesson: &LessonContext{Title: "T"}}.Subject())
}

func TestBodyFormatAndRender(t *testing.T) {
	text := Body{Text: &TextLesson{Title: "Loops", Explanation: "A loop repeats.", Exercises: []string{"Write one"}}}
	assert.Equal(t, preference.FormatText, text.Format())
	assert.Contains(t, text.Render(), "# Loops")
	assert.Contains(t, text.Render(), "1. Write one")

	video := Body{Video: &VideoScript{Title: "Loops", Scenes: []Scene{{Narration: "n", Visual: "v", DurationSeconds: 10}, {Narration: "m", Visual: "w", DurationSeconds: 5}}}}
	assert.Equal(t, preference.FormatVideo, video.Format())
	assert.Equal(t, 15, video.Video.TotalSeconds())
	assert.Contains(t, video.Render(), "(15s)")

	cards := Body{Flashcards: &FlashcardSet{Title: "Loops", Cards: []Card{{Front: "What?", Back: "Repeat"}}}}
	assert.Equal(t, preference.FormatFlashcards, cards.Format())
	assert.Contains(t, cards.Render(), "Q: What?")

	assert.Equal(t, preference.Format(""), Body{}.Format())
	assert.Empty(t, Body{}.Render())
}
