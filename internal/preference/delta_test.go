package preference

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	d := Default()
	assert.Equal(t, FormatText, d.Format)
	assert.Equal(t, StyleBalanced, d.ExplanationStyle)
	assert.Equal(t, PaceNormal, d.Pace)
	assert.Equal(t, ComplexityIntermediate, d.Complexity)
	assert.True(t, d.WantsExamples)
	assert.True(t, d.WantsAnalogies)
	assert.False(t, d.WantsExercises)
	assert.Zero(t, d.ChangeCount)
}

func TestDeltaApplyTo(t *testing.T) {
	base := Default()
	base.Format = FormatVideo
	base.Pace = PaceFast
	base.WantsExamples = false
	base.ChangeCount = 4

	t.Run("sets", func(t *testing.T) {
		var d Delta
		d.SetFormat(FormatFlashcards)
		d.SetComplexity(ComplexityBeginner)
		got := d.ApplyTo(base)

		want := base
		want.Format = FormatFlashcards
		want.Complexity = ComplexityBeginner
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ApplyTo mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("removals reset to defaults", func(t *testing.T) {
		var d Delta
		d.Remove(FieldFormat)
		d.Remove(FieldPace)
		d.Remove(FieldWantsExamples)
		got := d.ApplyTo(base)

		assert.Equal(t, FormatText, got.Format)
		assert.Equal(t, PaceNormal, got.Pace)
		assert.True(t, got.WantsExamples)
		assert.Equal(t, uint64(4), got.ChangeCount, "ApplyTo must not touch the counter")
	})

	t.Run("set wins over removal", func(t *testing.T) {
		var d Delta
		d.Remove(FieldFormat)
		d.SetFormat(FormatFlashcards)
		assert.Equal(t, FormatFlashcards, d.ApplyTo(base).Format)
	})

	t.Run("invalid enum set is ignored", func(t *testing.T) {
		var d Delta
		d.SetFormat(Format("hologram"))
		assert.Equal(t, FormatVideo, d.ApplyTo(base).Format)
	})
}

func TestDeltaWithout(t *testing.T) {
	var d Delta
	d.SetFormat(FormatVideo)
	d.SetPace(PaceSlow)
	d.Remove(FieldComplexity)
	d.Remove(FieldWantsExercises)

	got := d.Without([]Field{FieldFormat, FieldComplexity})
	assert.Nil(t, got.Sets.Format)
	assert.NotNil(t, got.Sets.Pace)
	assert.Equal(t, []Field{FieldWantsExercises}, got.Removals)

	// original untouched
	assert.NotNil(t, d.Sets.Format)
	assert.Len(t, d.Removals, 2)
}

func TestDeltaIsEmptyAndTouched(t *testing.T) {
	var d Delta
	assert.True(t, d.IsEmpty())

	d.SetWantsAnalogies(false)
	d.Remove(FieldWantsAnalogies)
	d.Remove(FieldPace)
	assert.False(t, d.IsEmpty())
	assert.ElementsMatch(t, []Field{FieldWantsAnalogies, FieldPace}, d.Touched())
}

func TestChangedFields(t *testing.T) {
	a := Default()
	b := a
	b.Format = FormatVideo
	b.WantsExercises = true
	b.ChangeCount = 9

	assert.Equal(t, []Field{FieldFormat, FieldWantsExercises}, ChangedFields(a, b))
	assert.Empty(t, ChangedFields(a, a))
}

func TestNormalize(t *testing.T) {
	s := Snapshot{Format: "gif", Pace: "warp", ChangeCount: 3}
	n := s.Normalize()
	assert.Equal(t, FormatText, n.Format)
	assert.Equal(t, PaceNormal, n.Pace)
	assert.Equal(t, StyleBalanced, n.ExplanationStyle)
	assert.Equal(t, uint64(3), n.ChangeCount)
}

func TestParseField(t *testing.T) {
	f, err := ParseField("pace")
	assert.NoError(t, err)
	assert.Equal(t, FieldPace, f)

	_, err = ParseField("mood")
	assert.Error(t, err)
}
