package judge

import (
	"strings"
	"unicode"

	"github.com/abhisek/lessonloop/internal/preference"
	"github.com/abhisek/lessonloop/internal/teaching"
)

// HeuristicCap bounds every criterion score produced without the LLM, so
// a fallback evaluation can pass but never with an inflated score.
const HeuristicCap = 85

// degradedCap bounds scores for fallback candidates. Their total can never
// reach the default pass threshold.
const degradedCap = 30

var stopwords = map[string]bool{
	"about": true, "after": true, "again": true, "also": true, "because": true,
	"before": true, "being": true, "could": true, "does": true, "explain": true,
	"from": true, "have": true, "help": true, "into": true, "just": true,
	"like": true, "make": true, "more": true, "please": true, "show": true,
	"some": true, "teach": true, "than": true, "that": true, "their": true,
	"them": true, "then": true, "there": true, "these": true, "they": true,
	"this": true, "want": true, "what": true, "when": true, "where": true,
	"which": true, "while": true, "with": true, "would": true, "your": true,
}

type signals struct {
	accuracy  int
	clarity   int
	relevance int
	pedagogy  int
	alignment int
}

// heuristicEvaluation scores a candidate from surface features: keyword
// overlap with the request, length, structure and preference match.
func heuristicEvaluation(call EvaluateCall, rubric Rubric, threshold int, reason string) teaching.Evaluation {
	rendered := call.Candidate.Body.Render()
	s := signals{
		accuracy:  60,
		clarity:   clarityScore(rendered),
		relevance: relevanceScore(call.Request, rendered),
		pedagogy:  pedagogyScore(call.Candidate.Body),
		alignment: alignmentScore(call.Candidate, call.Preferences),
	}

	limit := HeuristicCap
	if call.Candidate.Degraded {
		limit = degradedCap
	}

	breakdown := make([]teaching.CriterionScore, len(rubric))
	for i, c := range rubric {
		breakdown[i] = teaching.CriterionScore{
			Criterion: c.Name,
			Weight:    c.Weight,
			Score:     min(s.forCriterion(c.Name), limit),
			Feedback:  "estimated without a model review",
		}
	}

	var improvements []string
	if reason != "" {
		improvements = append(improvements, "automated review unavailable: "+reason)
	}
	if s.relevance < 60 {
		improvements = append(improvements, "Tie the content more directly to the learner's question.")
	}
	if s.pedagogy < 60 {
		improvements = append(improvements, "Add structure: examples, steps or practice.")
	}
	if s.alignment < 60 {
		improvements = append(improvements, "Match the learner's preferred format and style.")
	}
	return NewEvaluation(breakdown, improvements, threshold, true)
}

func (s signals) forCriterion(name string) int {
	switch strings.ToLower(name) {
	case "accuracy":
		return s.accuracy
	case "clarity":
		return s.clarity
	case "relevance":
		return s.relevance
	case "pedagogy":
		return s.pedagogy
	case "alignment":
		return s.alignment
	}
	return (s.accuracy + s.clarity + s.relevance + s.pedagogy + s.alignment) / 5
}

func keywords(text string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) >= 4 && !stopwords[w] {
			out[w] = true
		}
	}
	return out
}

func relevanceScore(req teaching.Request, rendered string) int {
	query := req.Message
	if l := req.Lesson; l != nil {
		query += " " + l.Title + " " + l.Topic + " " + l.Description
	}
	want := keywords(query)
	if len(want) == 0 {
		return 60
	}
	have := keywords(rendered)
	hits := 0
	for w := range want {
		if have[w] {
			hits++
		}
	}
	return 30 + 70*hits/len(want)
}

func clarityScore(rendered string) int {
	words := len(strings.Fields(rendered))
	switch {
	case words < 20:
		return 30
	case words < 60:
		return 60
	case words <= 800:
		return 80
	default:
		return 55
	}
}

func pedagogyScore(b teaching.Body) int {
	score := 40
	switch {
	case b.Text != nil:
		if b.Text.WorkedExample != "" {
			score += 15
		}
		if b.Text.Analogy != "" {
			score += 10
		}
		if len(b.Text.Exercises) > 0 {
			score += 15
		}
		if b.Text.Summary != "" {
			score += 10
		}
	case b.Video != nil:
		if n := len(b.Video.Scenes); n >= 3 && n <= 8 {
			score += 35
		} else if n > 0 {
			score += 15
		}
		if secs := b.Video.TotalSeconds(); secs >= 60 && secs <= 240 {
			score += 15
		}
	case b.Flashcards != nil:
		if n := len(b.Flashcards.Cards); n >= 5 && n <= 12 {
			score += 45
		} else if n > 0 {
			score += 20
		}
	default:
		return 0
	}
	return score
}

func alignmentScore(c teaching.Candidate, prefs preference.Snapshot) int {
	if c.Format != prefs.Format {
		return 40
	}
	score := 80
	if t := c.Body.Text; t != nil {
		if prefs.WantsExamples && t.WorkedExample == "" {
			score -= 10
		}
		if prefs.WantsAnalogies && t.Analogy == "" {
			score -= 10
		}
		if prefs.WantsExercises && len(t.Exercises) == 0 {
			score -= 10
		}
	}
	return score
}
