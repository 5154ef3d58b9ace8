package teaching

import (
	"fmt"
	"strings"

	"github.com/abhisek/lessonloop/internal/preference"
)

// TextLesson is a written explanation.
type TextLesson struct {
	Title         string   `json:"title"`
	Explanation   string   `json:"explanation"`
	WorkedExample string   `json:"worked_example,omitempty"`
	Analogy       string   `json:"analogy,omitempty"`
	Exercises     []string `json:"exercises,omitempty"`
	Summary       string   `json:"summary,omitempty"`
}

// Scene is one shot of a video script.
type Scene struct {
	Narration       string `json:"narration"`
	Visual          string `json:"visual"`
	DurationSeconds int    `json:"duration_seconds"`
}

// VideoScript is a scene-by-scene script for a short explainer video.
type VideoScript struct {
	Title  string  `json:"title"`
	Scenes []Scene `json:"scenes"`
}

// TotalSeconds sums the scene durations.
func (v VideoScript) TotalSeconds() int {
	total := 0
	for _, s := range v.Scenes {
		total += s.DurationSeconds
	}
	return total
}

// Card is a single flashcard.
type Card struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// FlashcardSet is a deck of cards on one topic.
type FlashcardSet struct {
	Title string `json:"title"`
	Cards []Card `json:"cards"`
}

// Body holds exactly one of the content variants.
type Body struct {
	Text       *TextLesson   `json:"text,omitempty"`
	Video      *VideoScript  `json:"video,omitempty"`
	Flashcards *FlashcardSet `json:"flashcards,omitempty"`
}

// Format reports which variant is set. An empty body reports "".
func (b Body) Format() preference.Format {
	switch {
	case b.Text != nil:
		return preference.FormatText
	case b.Video != nil:
		return preference.FormatVideo
	case b.Flashcards != nil:
		return preference.FormatFlashcards
	}
	return ""
}

// Title returns the variant's title.
func (b Body) Title() string {
	switch {
	case b.Text != nil:
		return b.Text.Title
	case b.Video != nil:
		return b.Video.Title
	case b.Flashcards != nil:
		return b.Flashcards.Title
	}
	return ""
}

// Render flattens the body to plain text. The judge scores this and the CLI
// prints it.
func (b Body) Render() string {
	var sb strings.Builder
	switch {
	case b.Text != nil:
		t := b.Text
		fmt.Fprintf(&sb, "# %s\n\n%s\n", t.Title, t.Explanation)
		if t.WorkedExample != "" {
			fmt.Fprintf(&sb, "\nExample:\n%s\n", t.WorkedExample)
		}
		if t.Analogy != "" {
			fmt.Fprintf(&sb, "\nAnalogy:\n%s\n", t.Analogy)
		}
		if len(t.Exercises) > 0 {
			sb.WriteString("\nExercises:\n")
			for i, e := range t.Exercises {
				fmt.Fprintf(&sb, "%d. %s\n", i+1, e)
			}
		}
		if t.Summary != "" {
			fmt.Fprintf(&sb, "\nSummary: %s\n", t.Summary)
		}
	case b.Video != nil:
		v := b.Video
		fmt.Fprintf(&sb, "# %s (%ds)\n", v.Title, v.TotalSeconds())
		for i, s := range v.Scenes {
			fmt.Fprintf(&sb, "\nScene %d (%ds)\n  Visual: %s\n  Narration: %s\n", i+1, s.DurationSeconds, s.Visual, s.Narration)
		}
	case b.Flashcards != nil:
		f := b.Flashcards
		fmt.Fprintf(&sb, "# %s\n", f.Title)
		for i, c := range f.Cards {
			fmt.Fprintf(&sb, "\n[%d] Q: %s\n    A: %s\n", i+1, c.Front, c.Back)
		}
	}
	return sb.String()
}
