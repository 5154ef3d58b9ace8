package preference

import "fmt"

// Format is the delivery format for teaching content.
type Format string

const (
	FormatText       Format = "text"
	FormatVideo      Format = "video"
	FormatFlashcards Format = "flashcards"
)

// DefaultPrecedence is the order in which formats are tried when the
// current one has been rejected.
var DefaultPrecedence = []Format{FormatFlashcards, FormatVideo, FormatText}

// KnownFormats returns every supported format in precedence order.
func KnownFormats() []Format {
	out := make([]Format, len(DefaultPrecedence))
	copy(out, DefaultPrecedence)
	return out
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	switch f {
	case FormatText, FormatVideo, FormatFlashcards:
		return true
	}
	return false
}

// ParseFormat maps a string to a Format. Unknown values report false.
func ParseFormat(s string) (Format, bool) {
	f := Format(s)
	return f, f.Valid()
}

// ExplanationStyle controls how verbose explanations are.
type ExplanationStyle string

const (
	StyleConcise  ExplanationStyle = "concise"
	StyleDetailed ExplanationStyle = "detailed"
	StyleBalanced ExplanationStyle = "balanced"
)

func (s ExplanationStyle) Valid() bool {
	return s == StyleConcise || s == StyleDetailed || s == StyleBalanced
}

// Pace controls how quickly new material is introduced.
type Pace string

const (
	PaceSlow   Pace = "slow"
	PaceNormal Pace = "normal"
	PaceFast   Pace = "fast"
)

func (p Pace) Valid() bool {
	return p == PaceSlow || p == PaceNormal || p == PaceFast
}

// Complexity is the learner's self-reported level.
type Complexity string

const (
	ComplexityBeginner     Complexity = "beginner"
	ComplexityIntermediate Complexity = "intermediate"
	ComplexityAdvanced     Complexity = "advanced"
)

func (c Complexity) Valid() bool {
	return c == ComplexityBeginner || c == ComplexityIntermediate || c == ComplexityAdvanced
}

// Snapshot is one user's stored preference record.
//
// ChangeCount increments exactly once per accepted Delta and is the version
// used for optimistic concurrency in Store.Apply.
type Snapshot struct {
	Format           Format           `json:"format"`
	ExplanationStyle ExplanationStyle `json:"explanation_style"`
	Pace             Pace             `json:"pace"`
	Complexity       Complexity       `json:"complexity"`
	WantsExamples    bool             `json:"wants_examples"`
	WantsAnalogies   bool             `json:"wants_analogies"`
	WantsExercises   bool             `json:"wants_exercises"`
	ChangeCount      uint64           `json:"change_count"`
}

// Default returns the snapshot a new user starts with.
func Default() Snapshot {
	return Snapshot{
		Format:           FormatText,
		ExplanationStyle: StyleBalanced,
		Pace:             PaceNormal,
		Complexity:       ComplexityIntermediate,
		WantsExamples:    true,
		WantsAnalogies:   true,
		WantsExercises:   false,
	}
}

// Normalize replaces invalid enum values with their defaults. Stores call it
// on everything they read so a corrupted row never leaks an unknown value.
func (s Snapshot) Normalize() Snapshot {
	def := Default()
	if !s.Format.Valid() {
		s.Format = def.Format
	}
	if !s.ExplanationStyle.Valid() {
		s.ExplanationStyle = def.ExplanationStyle
	}
	if !s.Pace.Valid() {
		s.Pace = def.Pace
	}
	if !s.Complexity.Valid() {
		s.Complexity = def.Complexity
	}
	return s
}

// Field names a single preference attribute.
type Field string

const (
	FieldFormat           Field = "format"
	FieldExplanationStyle Field = "explanation_style"
	FieldPace             Field = "pace"
	FieldComplexity       Field = "complexity"
	FieldWantsExamples    Field = "wants_examples"
	FieldWantsAnalogies   Field = "wants_analogies"
	FieldWantsExercises   Field = "wants_exercises"
)

// AllFields lists every removable field.
func AllFields() []Field {
	return []Field{
		FieldFormat,
		FieldExplanationStyle,
		FieldPace,
		FieldComplexity,
		FieldWantsExamples,
		FieldWantsAnalogies,
		FieldWantsExercises,
	}
}

// ParseField maps a string to a Field.
func ParseField(s string) (Field, error) {
	for _, f := range AllFields() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown preference field %q", s)
}

// ChangedFields returns the fields whose values differ between a and b.
// ChangeCount is not a field and is ignored.
func ChangedFields(a, b Snapshot) []Field {
	var out []Field
	if a.Format != b.Format {
		out = append(out, FieldFormat)
	}
	if a.ExplanationStyle != b.ExplanationStyle {
		out = append(out, FieldExplanationStyle)
	}
	if a.Pace != b.Pace {
		out = append(out, FieldPace)
	}
	if a.Complexity != b.Complexity {
		out = append(out, FieldComplexity)
	}
	if a.WantsExamples != b.WantsExamples {
		out = append(out, FieldWantsExamples)
	}
	if a.WantsAnalogies != b.WantsAnalogies {
		out = append(out, FieldWantsAnalogies)
	}
	if a.WantsExercises != b.WantsExercises {
		out = append(out, FieldWantsExercises)
	}
	return out
}
