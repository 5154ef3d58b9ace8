package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/lessonloop/internal/teaching"
)

const artifactsTable = "teaching_artifacts"

var artifactColumns = []string{
	"id", "sequence", "timestamp", "user_id", "candidate_id", "format",
	"attempt", "degraded", "total_score", "passed", "heuristic", "subject",
	"request", "body", "evaluation",
}

// ArtifactRepo persists the final candidate and evaluation of every
// teaching cycle. It satisfies the pipeline's content sink.
type ArtifactRepo struct {
	db  *sql.DB
	seq *sequence
}

// Save appends one artifact.
func (r *ArtifactRepo) Save(ctx context.Context, userID string, req teaching.Request, cand teaching.Candidate, eval teaching.Evaluation) error {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	bodyJSON, err := json.Marshal(cand.Body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	evalJSON, err := json.Marshal(eval)
	if err != nil {
		return fmt.Errorf("marshal evaluation: %w", err)
	}

	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := builder().Insert(artifactsTable).
		Columns(artifactColumns[1:]...).
		Values(
			seqNum,
			time.Now().UTC(),
			userID,
			cand.ID,
			string(cand.Format),
			cand.Attempt,
			cand.Degraded,
			eval.TotalScore,
			eval.Passed,
			eval.Heuristic,
			req.Subject(),
			string(reqJSON),
			string(bodyJSON),
			string(evalJSON),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	return nil
}

// List returns a user's artifacts newest-first. limit <= 0 means all.
func (r *ArtifactRepo) List(ctx context.Context, userID string, limit int) ([]Artifact, error) {
	sel := builder().Select(artifactColumns...).
		From(entsql.Table(artifactsTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("sequence"))
	if limit > 0 {
		sel.Limit(limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		var reqJSON, bodyJSON, evalJSON []byte
		if err := rows.Scan(
			&a.ID, &a.Sequence, &a.Timestamp, &a.UserID, &a.CandidateID, &a.Format,
			&a.Attempt, &a.Degraded, &a.TotalScore, &a.Passed, &a.Heuristic, &a.Subject,
			&reqJSON, &bodyJSON, &evalJSON,
		); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.Request = json.RawMessage(reqJSON)
		a.Body = json.RawMessage(bodyJSON)
		a.Evaluation = json.RawMessage(evalJSON)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Prune deletes all but the keep most recent artifacts for userID.
func (r *ArtifactRepo) Prune(ctx context.Context, userID string, keep int) error {
	query, args := builder().Select("sequence").
		From(entsql.Table(artifactsTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("sequence")).
		Offset(keep).
		Limit(1).
		Query()

	var threshold int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&threshold)
	if err == sql.ErrNoRows {
		return nil // fewer than keep artifacts exist
	}
	if err != nil {
		return fmt.Errorf("query artifacts for prune: %w", err)
	}

	query, args = builder().Delete(artifactsTable).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.LTE("sequence", threshold),
		)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prune artifacts: %w", err)
	}
	return nil
}

// Decode unmarshals the stored body and evaluation.
func (a Artifact) Decode() (teaching.Body, teaching.Evaluation, error) {
	var body teaching.Body
	var eval teaching.Evaluation
	if err := json.Unmarshal(a.Body, &body); err != nil {
		return body, eval, fmt.Errorf("decode body: %w", err)
	}
	if err := json.Unmarshal(a.Evaluation, &eval); err != nil {
		return body, eval, fmt.Errorf("decode evaluation: %w", err)
	}
	return body, eval, nil
}
