package report

import (
	"testing"

	"charm.land/lipgloss/v2"
	"github.com/stretchr/testify/assert"

	"github.com/abhisek/lessonloop/internal/preference"
	"github.com/abhisek/lessonloop/internal/teaching"
)

func sampleResult() *teaching.Result {
	return &teaching.Result{
		Candidate: teaching.Candidate{
			Format: preference.FormatFlashcards,
			Body: teaching.Body{Flashcards: &teaching.FlashcardSet{
				Title: "Fractions",
				Cards: []teaching.Card{{Front: "What is 1/2 + 1/4?", Back: "3/4"}},
			}},
			Attempt: 2,
		},
		Evaluation: teaching.Evaluation{
			TotalScore: 81,
			Passed:     true,
			Breakdown: []teaching.CriterionScore{
				{Criterion: "Accuracy", Weight: 60, Score: 90},
				{Criterion: "Clarity", Weight: 40, Score: 68},
			},
			Improvements: []string{"Add a visual card"},
		},
		AttemptsUsed:      2,
		PreferenceChanged: true,
		Worker:            "flashcard-worker",
		Attempts: []teaching.AttemptRecord{
			{Attempt: 1, Score: 55, Failure: "evaluation failed: timeout"},
			{Attempt: 2, Score: 81, Passed: true},
		},
	}
}

func TestResult(t *testing.T) {
	out := Result(sampleResult(), 80)

	for _, want := range []string{
		"Fractions", "flashcard-worker", "PASS 81/100", "What is 1/2 + 1/4?",
		"Accuracy (60)", "Add a visual card", "#1", "evaluation failed: timeout", "updated",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "fallback content")
}

func TestResultDegraded(t *testing.T) {
	res := sampleResult()
	res.Candidate.Degraded = true
	res.Evaluation.Passed = false
	res.Evaluation.TotalScore = 30
	res.Evaluation.Heuristic = true
	res.Stuck = true

	out := Result(res, 0)
	assert.Contains(t, out, "fallback content")
	assert.Contains(t, out, "FAIL 30/100")
	assert.Contains(t, out, "scored by heuristics")
	assert.Contains(t, out, "learner seems stuck")
}

func TestScoreBarWidth(t *testing.T) {
	for _, score := range []int{-5, 0, 37, 100, 140} {
		assert.Equal(t, 30, lipgloss.Width(ScoreBar(score, 30)))
	}
	assert.Contains(t, ScoreBar(140, 30), "100")
}

func TestPreferences(t *testing.T) {
	s := preference.Default()
	s.ChangeCount = 4
	out := Preferences("ada", s)
	assert.Contains(t, out, "Preferences for ada")
	assert.Contains(t, out, "balanced")
	assert.Contains(t, out, "4")
}
