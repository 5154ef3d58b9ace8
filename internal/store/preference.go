package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/lessonloop/internal/preference"
)

const preferencesTable = "preferences"

var preferenceColumns = []string{
	"format", "explanation_style", "pace", "complexity",
	"wants_examples", "wants_analogies", "wants_exercises", "change_count",
}

// PreferenceRepo implements preference.Store on SQLite. Apply is a single
// conditional UPDATE on change_count, so the version check and the write
// are one atomic statement.
type PreferenceRepo struct {
	db *sql.DB
}

var _ preference.Store = (*PreferenceRepo)(nil)

func (r *PreferenceRepo) Get(ctx context.Context, userID string) (preference.Snapshot, error) {
	if userID == "" {
		return preference.Snapshot{}, preference.ErrEmptyUser
	}
	if err := r.ensure(ctx, userID); err != nil {
		return preference.Snapshot{}, err
	}
	return r.read(ctx, userID)
}

func (r *PreferenceRepo) Apply(ctx context.Context, userID string, delta preference.Delta, expected uint64) (preference.ApplyResult, error) {
	if userID == "" {
		return preference.ApplyResult{}, preference.ErrEmptyUser
	}
	cur, err := r.Get(ctx, userID)
	if err != nil {
		return preference.ApplyResult{}, err
	}
	if cur.ChangeCount != expected {
		return preference.ApplyResult{Applied: false, Snapshot: cur}, nil
	}

	next := delta.ApplyTo(cur)
	query, args := builder().Update(preferencesTable).
		Set("format", string(next.Format)).
		Set("explanation_style", string(next.ExplanationStyle)).
		Set("pace", string(next.Pace)).
		Set("complexity", string(next.Complexity)).
		Set("wants_examples", next.WantsExamples).
		Set("wants_analogies", next.WantsAnalogies).
		Set("wants_exercises", next.WantsExercises).
		Set("updated_at", time.Now().UTC()).
		Add("change_count", 1).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("change_count", int64(expected)),
		)).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return preference.ApplyResult{}, fmt.Errorf("update preferences: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return preference.ApplyResult{}, fmt.Errorf("update preferences: %w", err)
	}

	if n == 1 {
		next.ChangeCount = expected + 1
		return preference.ApplyResult{Applied: true, Snapshot: next}, nil
	}
	// Another writer won between our read and the update.
	stored, err := r.read(ctx, userID)
	if err != nil {
		return preference.ApplyResult{}, err
	}
	return preference.ApplyResult{Applied: false, Snapshot: stored}, nil
}

// ensure inserts the default row if the user has none.
func (r *PreferenceRepo) ensure(ctx context.Context, userID string) error {
	def := preference.Default()
	query, args := builder().Insert(preferencesTable).
		Columns("user_id", "format", "explanation_style", "pace", "complexity",
			"wants_examples", "wants_analogies", "wants_exercises", "change_count", "updated_at").
		Values(userID, string(def.Format), string(def.ExplanationStyle), string(def.Pace), string(def.Complexity),
			def.WantsExamples, def.WantsAnalogies, def.WantsExercises, int64(0), time.Now().UTC()).
		OnConflict(entsql.ConflictColumns("user_id"), entsql.DoNothing()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("init preferences: %w", err)
	}
	return nil
}

func (r *PreferenceRepo) read(ctx context.Context, userID string) (preference.Snapshot, error) {
	query, args := builder().Select(preferenceColumns...).
		From(entsql.Table(preferencesTable)).
		Where(entsql.EQ("user_id", userID)).
		Query()

	var s preference.Snapshot
	var format, style, pace, complexity string
	var count int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&format, &style, &pace, &complexity,
		&s.WantsExamples, &s.WantsAnalogies, &s.WantsExercises, &count,
	)
	if err != nil {
		return preference.Snapshot{}, fmt.Errorf("read preferences: %w", err)
	}
	s.Format = preference.Format(format)
	s.ExplanationStyle = preference.ExplanationStyle(style)
	s.Pace = preference.Pace(pace)
	s.Complexity = preference.Complexity(complexity)
	s.ChangeCount = uint64(count)
	return s.Normalize(), nil
}
