package pipeline

import (
	"context"

	"github.com/abhisek/lessonloop/internal/teaching"
)

// Sink receives the final candidate of every cycle.
type Sink interface {
	Save(ctx context.Context, userID string, req teaching.Request, cand teaching.Candidate, eval teaching.Evaluation) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Save(context.Context, string, teaching.Request, teaching.Candidate, teaching.Evaluation) error {
	return nil
}
