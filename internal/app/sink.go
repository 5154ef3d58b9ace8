package app

import (
	"context"
	"fmt"

	"github.com/abhisek/lessonloop/internal/store"
	"github.com/abhisek/lessonloop/internal/teaching"
)

// ArtifactSink persists cycle outcomes to SQLite and keeps at most Keep
// artifacts per user. Keep <= 0 keeps everything.
type ArtifactSink struct {
	Repo *store.ArtifactRepo
	Keep int
}

func (s *ArtifactSink) Save(ctx context.Context, userID string, req teaching.Request, cand teaching.Candidate, eval teaching.Evaluation) error {
	if err := s.Repo.Save(ctx, userID, req, cand, eval); err != nil {
		return err
	}
	if s.Keep > 0 {
		if err := s.Repo.Prune(ctx, userID, s.Keep); err != nil {
			return fmt.Errorf("prune artifacts: %w", err)
		}
	}
	return nil
}
