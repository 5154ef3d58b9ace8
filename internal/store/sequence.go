package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// globalSequence orders rows across the artifact and event tables.
const globalSequence = "global"

var (
	SequencesColumns = []*schema.Column{
		{Name: "name", Type: field.TypeString},
		{Name: "next_val", Type: field.TypeInt64, Default: 1},
	}
	SequencesTable = &schema.Table{
		Name:       "sequences",
		Columns:    SequencesColumns,
		PrimaryKey: []*schema.Column{SequencesColumns[0]},
	}
)

// sequence is a named, gap-free counter row. Every append-only table
// draws from the same one so their rows interleave in write order.
type sequence struct {
	mu   sync.Mutex
	db   *sql.DB
	name string
}

func openSequence(ctx context.Context, db *sql.DB, name string) (*sequence, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Insert(SequencesTable.Name).
		Columns("name", "next_val").
		Values(name, 1).
		OnConflict(entsql.DoNothing()).
		Query()
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("seed sequence %s: %w", name, err)
	}
	return &sequence{db: db, name: name}, nil
}

// Next returns the current value and advances the counter.
func (s *sequence) Next(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The builder has no RETURNING for updates.
	var n int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE sequences SET next_val = next_val + 1 WHERE name = ? RETURNING next_val - 1`, s.name,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("advance sequence %s: %w", s.name, err)
	}
	return n, nil
}
