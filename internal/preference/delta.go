package preference

import "slices"

// Patch is a partial Snapshot. Nil fields are left untouched.
type Patch struct {
	Format           *Format           `json:"format,omitempty"`
	ExplanationStyle *ExplanationStyle `json:"explanation_style,omitempty"`
	Pace             *Pace             `json:"pace,omitempty"`
	Complexity       *Complexity       `json:"complexity,omitempty"`
	WantsExamples    *bool             `json:"wants_examples,omitempty"`
	WantsAnalogies   *bool             `json:"wants_analogies,omitempty"`
	WantsExercises   *bool             `json:"wants_exercises,omitempty"`
}

// Fields returns the fields this patch sets.
func (p Patch) Fields() []Field {
	var out []Field
	if p.Format != nil {
		out = append(out, FieldFormat)
	}
	if p.ExplanationStyle != nil {
		out = append(out, FieldExplanationStyle)
	}
	if p.Pace != nil {
		out = append(out, FieldPace)
	}
	if p.Complexity != nil {
		out = append(out, FieldComplexity)
	}
	if p.WantsExamples != nil {
		out = append(out, FieldWantsExamples)
	}
	if p.WantsAnalogies != nil {
		out = append(out, FieldWantsAnalogies)
	}
	if p.WantsExercises != nil {
		out = append(out, FieldWantsExercises)
	}
	return out
}

func (p *Patch) clear(f Field) {
	switch f {
	case FieldFormat:
		p.Format = nil
	case FieldExplanationStyle:
		p.ExplanationStyle = nil
	case FieldPace:
		p.Pace = nil
	case FieldComplexity:
		p.Complexity = nil
	case FieldWantsExamples:
		p.WantsExamples = nil
	case FieldWantsAnalogies:
		p.WantsAnalogies = nil
	case FieldWantsExercises:
		p.WantsExercises = nil
	}
}

// Delta is a partial, mergeable change to a Snapshot.
//
// Removals reset a field to its Default value. Sets are applied after
// removals, so a field that is both removed and set ends up set.
type Delta struct {
	Sets     Patch   `json:"sets"`
	Removals []Field `json:"removals,omitempty"`
}

// IsEmpty reports whether applying d would be a no-op request.
func (d Delta) IsEmpty() bool {
	return len(d.Sets.Fields()) == 0 && len(d.Removals) == 0
}

// Removes reports whether f is in the removal set.
func (d Delta) Removes(f Field) bool {
	return slices.Contains(d.Removals, f)
}

// Touched returns every field the delta sets or removes, without duplicates.
func (d Delta) Touched() []Field {
	out := d.Sets.Fields()
	for _, f := range d.Removals {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// Without returns a copy of d with every listed field dropped from both
// sets and removals.
func (d Delta) Without(fields []Field) Delta {
	out := Delta{Sets: d.Sets}
	for _, f := range fields {
		out.Sets.clear(f)
	}
	for _, f := range d.Removals {
		if !slices.Contains(fields, f) && !slices.Contains(out.Removals, f) {
			out.Removals = append(out.Removals, f)
		}
	}
	return out
}

// SetFormat records a format change.
func (d *Delta) SetFormat(f Format) { d.Sets.Format = &f }

// SetExplanationStyle records an explanation style change.
func (d *Delta) SetExplanationStyle(s ExplanationStyle) { d.Sets.ExplanationStyle = &s }

// SetPace records a pace change.
func (d *Delta) SetPace(p Pace) { d.Sets.Pace = &p }

// SetComplexity records a complexity change.
func (d *Delta) SetComplexity(c Complexity) { d.Sets.Complexity = &c }

// SetWantsExamples records whether worked examples are wanted.
func (d *Delta) SetWantsExamples(v bool) { d.Sets.WantsExamples = &v }

// SetWantsAnalogies records whether analogies are wanted.
func (d *Delta) SetWantsAnalogies(v bool) { d.Sets.WantsAnalogies = &v }

// SetWantsExercises records whether practice exercises are wanted.
func (d *Delta) SetWantsExercises(v bool) { d.Sets.WantsExercises = &v }

// Remove adds f to the removal set.
func (d *Delta) Remove(f Field) {
	if !slices.Contains(d.Removals, f) {
		d.Removals = append(d.Removals, f)
	}
}

// ApplyTo returns s with d merged in. ChangeCount is not modified; stores
// own the counter.
func (d Delta) ApplyTo(s Snapshot) Snapshot {
	def := Default()
	for _, f := range d.Removals {
		switch f {
		case FieldFormat:
			s.Format = def.Format
		case FieldExplanationStyle:
			s.ExplanationStyle = def.ExplanationStyle
		case FieldPace:
			s.Pace = def.Pace
		case FieldComplexity:
			s.Complexity = def.Complexity
		case FieldWantsExamples:
			s.WantsExamples = def.WantsExamples
		case FieldWantsAnalogies:
			s.WantsAnalogies = def.WantsAnalogies
		case FieldWantsExercises:
			s.WantsExercises = def.WantsExercises
		}
	}

	p := d.Sets
	if p.Format != nil && p.Format.Valid() {
		s.Format = *p.Format
	}
	if p.ExplanationStyle != nil && p.ExplanationStyle.Valid() {
		s.ExplanationStyle = *p.ExplanationStyle
	}
	if p.Pace != nil && p.Pace.Valid() {
		s.Pace = *p.Pace
	}
	if p.Complexity != nil && p.Complexity.Valid() {
		s.Complexity = *p.Complexity
	}
	if p.WantsExamples != nil {
		s.WantsExamples = *p.WantsExamples
	}
	if p.WantsAnalogies != nil {
		s.WantsAnalogies = *p.WantsAnalogies
	}
	if p.WantsExercises != nil {
		s.WantsExercises = *p.WantsExercises
	}
	return s
}
