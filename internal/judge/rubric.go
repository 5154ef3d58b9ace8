package judge

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/abhisek/lessonloop/internal/teaching"
)

// DefaultPassThreshold is the minimum total score that passes.
const DefaultPassThreshold = 70

// Default criterion names.
const (
	CriterionAccuracy  = "Accuracy"
	CriterionClarity   = "Clarity"
	CriterionRelevance = "Relevance"
	CriterionPedagogy  = "Pedagogy"
	CriterionAlignment = "Alignment"
)

// Criterion is one weighted rubric line.
type Criterion struct {
	Name        string `yaml:"name" json:"name"`
	Weight      int    `yaml:"weight" json:"weight"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Rubric is an ordered set of criteria whose weights sum to 100.
type Rubric []Criterion

// DefaultRubric returns the stock rubric.
func DefaultRubric() Rubric {
	return Rubric{
		{Name: CriterionAccuracy, Weight: 30, Description: "Facts, definitions and worked steps are correct"},
		{Name: CriterionClarity, Weight: 25, Description: "Easy to follow for the learner's level"},
		{Name: CriterionRelevance, Weight: 20, Description: "Addresses what the learner asked"},
		{Name: CriterionPedagogy, Weight: 15, Description: "Builds understanding with structure, examples and practice"},
		{Name: CriterionAlignment, Weight: 10, Description: "Matches the learner's stated preferences"},
	}
}

// Validate checks that weights are positive, names unique and the total
// is exactly 100.
func (r Rubric) Validate() error {
	if len(r) == 0 {
		return errors.New("rubric has no criteria")
	}
	seen := make(map[string]bool, len(r))
	sum := 0
	for _, c := range r {
		key := strings.ToLower(strings.TrimSpace(c.Name))
		if key == "" {
			return errors.New("rubric criterion has no name")
		}
		if seen[key] {
			return fmt.Errorf("duplicate rubric criterion %q", c.Name)
		}
		seen[key] = true
		if c.Weight <= 0 {
			return fmt.Errorf("rubric criterion %q has non-positive weight %d", c.Name, c.Weight)
		}
		sum += c.Weight
	}
	if sum != 100 {
		return fmt.Errorf("rubric weights sum to %d, want 100", sum)
	}
	return nil
}

// Total computes round(Σ weight·score / 100), clamped to 0..100.
func Total(breakdown []teaching.CriterionScore) int {
	sum := 0
	for _, c := range breakdown {
		sum += c.Weight * clamp(c.Score, 0, 100)
	}
	return clamp(int(math.Round(float64(sum)/100)), 0, 100)
}

// NewEvaluation assembles an Evaluation from per-criterion scores.
func NewEvaluation(breakdown []teaching.CriterionScore, improvements []string, threshold int, heuristic bool) teaching.Evaluation {
	total := Total(breakdown)
	return teaching.Evaluation{
		TotalScore:   total,
		Passed:       total >= threshold,
		Breakdown:    breakdown,
		Improvements: improvements,
		Heuristic:    heuristic,
	}
}

// ZeroEvaluation scores every criterion 0 and records reason as the only
// improvement. It stands in for an attempt whose worker call failed.
func ZeroEvaluation(r Rubric, reason string) teaching.Evaluation {
	breakdown := make([]teaching.CriterionScore, len(r))
	for i, c := range r {
		breakdown[i] = teaching.CriterionScore{Criterion: c.Name, Weight: c.Weight}
	}
	return teaching.Evaluation{
		Breakdown:    breakdown,
		Improvements: []string{reason},
	}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
