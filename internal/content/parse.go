package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/lessonloop/internal/llm"
	"github.com/abhisek/lessonloop/internal/preference"
	"github.com/abhisek/lessonloop/internal/teaching"
)

// ErrMalformedBody is wrapped by every ParseCandidateBody failure.
var ErrMalformedBody = errors.New("malformed candidate body")

// ParseCandidateBody decodes raw model output into the typed body for
// format. Markdown fences and surrounding prose are stripped first.
func ParseCandidateBody(format preference.Format, raw []byte) (teaching.Body, error) {
	payload, ok := llm.ExtractJSON(raw)
	if !ok {
		return teaching.Body{}, fmt.Errorf("%w: no JSON object found", ErrMalformedBody)
	}

	switch format {
	case preference.FormatText:
		var t teaching.TextLesson
		if err := json.Unmarshal(payload, &t); err != nil {
			return teaching.Body{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		if err := validateText(&t); err != nil {
			return teaching.Body{}, err
		}
		return teaching.Body{Text: &t}, nil

	case preference.FormatVideo:
		var v teaching.VideoScript
		if err := json.Unmarshal(payload, &v); err != nil {
			return teaching.Body{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		if err := validateVideo(&v); err != nil {
			return teaching.Body{}, err
		}
		return teaching.Body{Video: &v}, nil

	case preference.FormatFlashcards:
		var f teaching.FlashcardSet
		if err := json.Unmarshal(payload, &f); err != nil {
			return teaching.Body{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		if err := validateFlashcards(&f); err != nil {
			return teaching.Body{}, err
		}
		return teaching.Body{Flashcards: &f}, nil
	}
	return teaching.Body{}, fmt.Errorf("%w: unknown format %q", ErrMalformedBody, format)
}

func validateText(t *teaching.TextLesson) error {
	t.Title = strings.TrimSpace(t.Title)
	t.Explanation = strings.TrimSpace(t.Explanation)
	if t.Title == "" {
		return fmt.Errorf("%w: text lesson has no title", ErrMalformedBody)
	}
	if t.Explanation == "" {
		return fmt.Errorf("%w: text lesson has no explanation", ErrMalformedBody)
	}
	if len(t.Exercises) > MaxExercises {
		return fmt.Errorf("%w: %d exercises exceeds %d", ErrMalformedBody, len(t.Exercises), MaxExercises)
	}
	exercises := t.Exercises[:0]
	for _, e := range t.Exercises {
		if e = strings.TrimSpace(e); e != "" {
			exercises = append(exercises, e)
		}
	}
	t.Exercises = exercises
	return nil
}

func validateVideo(v *teaching.VideoScript) error {
	v.Title = strings.TrimSpace(v.Title)
	if v.Title == "" {
		return fmt.Errorf("%w: video script has no title", ErrMalformedBody)
	}
	if len(v.Scenes) == 0 {
		return fmt.Errorf("%w: video script has no scenes", ErrMalformedBody)
	}
	if len(v.Scenes) > MaxScenes {
		return fmt.Errorf("%w: %d scenes exceeds %d", ErrMalformedBody, len(v.Scenes), MaxScenes)
	}
	for i, s := range v.Scenes {
		if strings.TrimSpace(s.Narration) == "" {
			return fmt.Errorf("%w: scene %d has no narration", ErrMalformedBody, i+1)
		}
		if s.DurationSeconds <= 0 || s.DurationSeconds > MaxSceneSeconds {
			return fmt.Errorf("%w: scene %d duration %ds out of range", ErrMalformedBody, i+1, s.DurationSeconds)
		}
	}
	return nil
}

func validateFlashcards(f *teaching.FlashcardSet) error {
	f.Title = strings.TrimSpace(f.Title)
	if f.Title == "" {
		return fmt.Errorf("%w: flashcard set has no title", ErrMalformedBody)
	}
	if len(f.Cards) == 0 {
		return fmt.Errorf("%w: flashcard set has no cards", ErrMalformedBody)
	}
	if len(f.Cards) > MaxCards {
		return fmt.Errorf("%w: %d cards exceeds %d", ErrMalformedBody, len(f.Cards), MaxCards)
	}
	for i, c := range f.Cards {
		if strings.TrimSpace(c.Front) == "" || strings.TrimSpace(c.Back) == "" {
			return fmt.Errorf("%w: card %d is missing a side", ErrMalformedBody, i+1)
		}
	}
	return nil
}
