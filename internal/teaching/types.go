package teaching

import (
	"errors"
	"strings"

	"github.com/abhisek/lessonloop/internal/preference"
)

// MaxMessageLength bounds the learner message accepted by a cycle.
const MaxMessageLength = 8000

// LessonContext describes what is being taught.
type LessonContext struct {
	Title       string `json:"title"`
	Topic       string `json:"topic"`
	Description string `json:"description,omitempty"`
}

// PriorTurn is one earlier exchange in the conversation.
type PriorTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request asks for one piece of teaching content.
type Request struct {
	UserID  string         `json:"user_id"`
	Message string         `json:"message"`
	Lesson  *LessonContext `json:"lesson,omitempty"`
	History []PriorTurn    `json:"history,omitempty"`
}

// Validate checks the fields a cycle cannot run without.
func (r Request) Validate() error {
	var errs []error
	if strings.TrimSpace(r.UserID) == "" {
		errs = append(errs, errors.New("user id is required"))
	}
	if strings.TrimSpace(r.Message) == "" && r.Lesson == nil {
		errs = append(errs, errors.New("message or lesson is required"))
	}
	if len(r.Message) > MaxMessageLength {
		errs = append(errs, errors.New("message too long"))
	}
	if r.Lesson != nil && strings.TrimSpace(r.Lesson.Title) == "" && strings.TrimSpace(r.Lesson.Topic) == "" {
		errs = append(errs, errors.New("lesson needs a title or topic"))
	}
	for _, t := range r.History {
		if t.Role != "user" && t.Role != "assistant" {
			errs = append(errs, errors.New("history role must be user or assistant"))
			break
		}
	}
	return errors.Join(errs...)
}

// Subject returns the best short description of what to teach.
func (r Request) Subject() string {
	if r.Lesson != nil {
		if r.Lesson.Topic != "" {
			return r.Lesson.Topic
		}
		return r.Lesson.Title
	}
	return r.Message
}

// Candidate is one piece of generated content.
type Candidate struct {
	ID       string            `json:"id"`
	Format   preference.Format `json:"format"`
	Body     Body              `json:"body"`
	Attempt  int               `json:"attempt"`
	Degraded bool              `json:"degraded,omitempty"`
}

// CriterionScore is one rubric line of an Evaluation.
type CriterionScore struct {
	Criterion string `json:"criterion"`
	Weight    int    `json:"weight"`
	Score     int    `json:"score"`
	Feedback  string `json:"feedback,omitempty"`
}

// Evaluation is the judge's verdict on a Candidate.
type Evaluation struct {
	TotalScore   int              `json:"total_score"`
	Passed       bool             `json:"passed"`
	Breakdown    []CriterionScore `json:"breakdown"`
	Improvements []string         `json:"improvements,omitempty"`
	Heuristic    bool             `json:"heuristic,omitempty"`
}

// AttemptRecord summarizes one generate/evaluate round.
type AttemptRecord struct {
	Attempt  int    `json:"attempt"`
	Worker   string `json:"worker"`
	Score    int    `json:"score"`
	Passed   bool   `json:"passed"`
	Degraded bool   `json:"degraded,omitempty"`
	Failure  string `json:"failure,omitempty"`
}

// Result is the outcome of one teaching cycle. It is returned whether or
// not any attempt passed.
type Result struct {
	Candidate         Candidate           `json:"candidate"`
	Evaluation        Evaluation          `json:"evaluation"`
	AttemptsUsed      int                 `json:"attempts_used"`
	PreferenceChanged bool                `json:"preference_changed"`
	RecommendedFormat preference.Format   `json:"recommended_format,omitempty"`
	Stuck             bool                `json:"stuck,omitempty"`
	Worker            string              `json:"worker"`
	Preferences       preference.Snapshot `json:"preferences"`
	Attempts          []AttemptRecord     `json:"attempts"`
	Trace             []string            `json:"trace"`
}
