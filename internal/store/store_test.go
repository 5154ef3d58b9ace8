package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/abhisek/lessonloop/internal/preference"
	"github.com/abhisek/lessonloop/internal/teaching"
)

// openTestStore opens a private in-memory database per test so state never
// leaks between tests sharing the process-wide SQLite cache.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	for _, table := range []string{"preferences", "teaching_artifacts", "llm_request_events", "sequences"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Fatalf("query sqlite_master for %s: %v", table, err)
		}
		if name != table {
			t.Errorf("table name = %q, want %q", name, table)
		}
	}
}

func TestSequence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := s.seq.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}
}

func TestPreferenceGetCreatesDefaults(t *testing.T) {
	s := openTestStore(t)
	repo := s.PreferenceRepo()
	ctx := context.Background()

	got, err := repo.Get(ctx, "ada")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != preference.Default() {
		t.Errorf("get = %+v, want defaults", got)
	}

	// Second Get must not reset or duplicate the row.
	if _, err := repo.Get(ctx, "ada"); err != nil {
		t.Fatalf("second get: %v", err)
	}
	var rows int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM preferences WHERE user_id = 'ada'").Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Errorf("rows = %d, want 1", rows)
	}
}

func TestPreferenceEmptyUser(t *testing.T) {
	s := openTestStore(t)
	repo := s.PreferenceRepo()

	if _, err := repo.Get(context.Background(), ""); err != preference.ErrEmptyUser {
		t.Errorf("get err = %v, want ErrEmptyUser", err)
	}
	_, err := repo.Apply(context.Background(), "", preference.Delta{}, 0)
	if err != preference.ErrEmptyUser {
		t.Errorf("apply err = %v, want ErrEmptyUser", err)
	}
}

func TestPreferenceApply(t *testing.T) {
	s := openTestStore(t)
	repo := s.PreferenceRepo()
	ctx := context.Background()

	var d preference.Delta
	d.SetFormat(preference.FormatFlashcards)
	d.SetPace(preference.PaceFast)

	res, err := repo.Apply(ctx, "ada", d, 0)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !res.Applied {
		t.Fatal("expected apply to succeed")
	}
	if res.Snapshot.ChangeCount != 1 {
		t.Errorf("change count = %d, want 1", res.Snapshot.ChangeCount)
	}

	got, err := repo.Get(ctx, "ada")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != res.Snapshot {
		t.Errorf("stored = %+v, want %+v", got, res.Snapshot)
	}
	if got.Format != preference.FormatFlashcards || got.Pace != preference.PaceFast {
		t.Errorf("stored format/pace = %s/%s", got.Format, got.Pace)
	}
}

func TestPreferenceApplyStale(t *testing.T) {
	s := openTestStore(t)
	repo := s.PreferenceRepo()
	ctx := context.Background()

	var d preference.Delta
	d.SetFormat(preference.FormatVideo)
	if _, err := repo.Apply(ctx, "ada", d, 0); err != nil {
		t.Fatalf("apply: %v", err)
	}

	var stale preference.Delta
	stale.SetFormat(preference.FormatText)
	res, err := repo.Apply(ctx, "ada", stale, 0)
	if err != nil {
		t.Fatalf("stale apply: %v", err)
	}
	if res.Applied {
		t.Fatal("expected stale apply to be rejected")
	}
	if res.Snapshot.Format != preference.FormatVideo || res.Snapshot.ChangeCount != 1 {
		t.Errorf("current = %+v, want video at count 1", res.Snapshot)
	}
}

func TestPreferenceConcurrentApplyOneWinner(t *testing.T) {
	s := openTestStore(t)
	repo := s.PreferenceRepo()
	ctx := context.Background()

	formats := []preference.Format{preference.FormatVideo, preference.FormatFlashcards}
	results := make([]preference.ApplyResult, len(formats))
	errs := make([]error, len(formats))

	var wg sync.WaitGroup
	for i, f := range formats {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var d preference.Delta
			d.SetFormat(f)
			results[i], errs[i] = repo.Apply(ctx, "ada", d, 0)
		}()
	}
	wg.Wait()

	winners := 0
	for i := range formats {
		if errs[i] != nil {
			t.Fatalf("apply %d: %v", i, errs[i])
		}
		if results[i].Applied {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want 1", winners)
	}

	got, err := repo.Get(ctx, "ada")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ChangeCount != 1 {
		t.Errorf("change count = %d, want 1", got.ChangeCount)
	}
}

func TestPreferenceResetKeepsCounting(t *testing.T) {
	s := openTestStore(t)
	repo := s.PreferenceRepo()
	ctx := context.Background()

	var d preference.Delta
	d.SetComplexity(preference.ComplexityAdvanced)
	if _, err := repo.Apply(ctx, "ada", d, 0); err != nil {
		t.Fatalf("apply: %v", err)
	}

	var reset preference.Delta
	for _, f := range preference.AllFields() {
		reset.Remove(f)
	}
	res, err := repo.Apply(ctx, "ada", reset, 1)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !res.Applied {
		t.Fatal("expected reset to apply")
	}

	want := preference.Default()
	want.ChangeCount = 2
	got, err := repo.Get(ctx, "ada")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != want {
		t.Errorf("after reset = %+v, want %+v", got, want)
	}

	// A writer that read the count before the reset must still lose.
	var stale preference.Delta
	stale.SetFormat(preference.FormatVideo)
	res, err = repo.Apply(ctx, "ada", stale, 1)
	if err != nil {
		t.Fatalf("stale apply: %v", err)
	}
	if res.Applied {
		t.Fatal("expected stale apply after reset to be rejected")
	}
	if res.Snapshot.ChangeCount != 2 {
		t.Errorf("change count = %d, want 2", res.Snapshot.ChangeCount)
	}
}

func testArtifact(id string, score int) (teaching.Request, teaching.Candidate, teaching.Evaluation) {
	req := teaching.Request{UserID: "ada", Message: "Explain recursion"}
	cand := teaching.Candidate{
		ID:      id,
		Format:  preference.FormatFlashcards,
		Attempt: 1,
		Body: teaching.Body{Flashcards: &teaching.FlashcardSet{
			Title: "Recursion",
			Cards: []teaching.Card{{Front: "Base case?", Back: "The input that stops recursion."}},
		}},
	}
	eval := teaching.Evaluation{TotalScore: score, Passed: score >= 70}
	return req, cand, eval
}

func TestArtifactSaveAndList(t *testing.T) {
	s := openTestStore(t)
	repo := s.ArtifactRepo()
	ctx := context.Background()

	for i, score := range []int{55, 82} {
		req, cand, eval := testArtifact(fmt.Sprintf("c%d", i), score)
		if err := repo.Save(ctx, "ada", req, cand, eval); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	got, err := repo.List(ctx, "ada", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].CandidateID != "c1" || got[0].TotalScore != 82 || !got[0].Passed {
		t.Errorf("newest = %+v, want c1 passed at 82", got[0])
	}
	if got[0].Subject != "Explain recursion" {
		t.Errorf("subject = %q", got[0].Subject)
	}

	body, eval, err := got[0].Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Flashcards == nil || len(body.Flashcards.Cards) != 1 {
		t.Errorf("decoded body = %+v", body)
	}
	if eval.TotalScore != 82 {
		t.Errorf("decoded score = %d, want 82", eval.TotalScore)
	}

	others, err := repo.List(ctx, "grace", 0)
	if err != nil {
		t.Fatalf("list other user: %v", err)
	}
	if len(others) != 0 {
		t.Errorf("other user artifacts = %d, want 0", len(others))
	}
}

func TestArtifactPrune(t *testing.T) {
	s := openTestStore(t)
	repo := s.ArtifactRepo()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		req, cand, eval := testArtifact(fmt.Sprintf("c%d", i), 75)
		if err := repo.Save(ctx, "ada", req, cand, eval); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	if err := repo.Prune(ctx, "ada", 5); err != nil {
		t.Fatalf("prune: %v", err)
	}
	got, err := repo.List(ctx, "ada", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("remaining = %d, want 5", len(got))
	}
	if got[0].CandidateID != "c6" {
		t.Errorf("newest = %q, want c6", got[0].CandidateID)
	}

	// Fewer than keep is a no-op.
	if err := repo.Prune(ctx, "ada", 10); err != nil {
		t.Fatalf("prune no-op: %v", err)
	}
	got, _ = repo.List(ctx, "ada", 0)
	if len(got) != 5 {
		t.Errorf("remaining after no-op = %d, want 5", len(got))
	}
}

func TestLLMEventAppendAndQuery(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "anthropic", Model: "claude-haiku", Purpose: "judge", InputTokens: 100, OutputTokens: 40, LatencyMs: 200, Success: true},
		{Provider: "anthropic", Model: "claude-haiku", Purpose: "content-text", InputTokens: 300, OutputTokens: 500, LatencyMs: 900, Success: true},
		{Provider: "anthropic", Model: "claude-sonnet", Purpose: "judge", InputTokens: 120, OutputTokens: 60, LatencyMs: 400, Success: false, ErrorMessage: "rate limited"},
	}
	for i, e := range events {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].Model != "claude-sonnet" {
		t.Errorf("newest model = %q, want claude-sonnet", all[0].Model)
	}

	judge, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "judge", Limit: 1})
	if err != nil {
		t.Fatalf("query judge: %v", err)
	}
	if len(judge) != 1 || judge[0].ErrorMessage != "rate limited" {
		t.Errorf("judge events = %+v", judge)
	}

	one, err := repo.GetLLMEvent(ctx, all[1].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if one == nil || one.Purpose != "content-text" {
		t.Errorf("get = %+v, want content-text event", one)
	}

	missing, err := repo.GetLLMEvent(ctx, 9999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("get missing = %+v, want nil", missing)
	}
}

func TestLLMUsageAggregates(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for _, e := range []LLMRequestEventData{
		{Model: "m1", Purpose: "judge", InputTokens: 10, OutputTokens: 5, LatencyMs: 100, Success: true},
		{Model: "m1", Purpose: "judge", InputTokens: 30, OutputTokens: 15, LatencyMs: 300, Success: true},
		{Model: "m2", Purpose: "detect", InputTokens: 7, OutputTokens: 3, LatencyMs: 50, Success: true},
	} {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		t.Fatalf("by purpose: %v", err)
	}
	if len(byPurpose) != 2 {
		t.Fatalf("purposes = %d, want 2", len(byPurpose))
	}
	judge := byPurpose[1]
	if judge.Purpose != "judge" || judge.Calls != 2 || judge.InputTokens != 40 || judge.AvgLatencyMs != 200 {
		t.Errorf("judge usage = %+v", judge)
	}

	byModel, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		t.Fatalf("by model: %v", err)
	}
	if len(byModel) != 2 || byModel[0].Model != "m1" || byModel[0].OutputTokens != 20 {
		t.Errorf("model usage = %+v", byModel)
	}
}
