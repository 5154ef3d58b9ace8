package detect

import (
	"fmt"
	"slices"

	"github.com/abhisek/lessonloop/internal/preference"
)

// Policy picks a replacement when the current format is rejected.
type Policy interface {
	// Substitute returns a format not in rejected, or "" if none is left.
	Substitute(current preference.Format, rejected []preference.Format) preference.Format
}

// PrecedencePolicy returns the first format in Order that is not rejected.
type PrecedencePolicy struct {
	Order []preference.Format
}

// NewPrecedencePolicy uses preference.DefaultPrecedence.
func NewPrecedencePolicy() PrecedencePolicy {
	return PrecedencePolicy{Order: preference.DefaultPrecedence}
}

func (p PrecedencePolicy) Substitute(current preference.Format, rejected []preference.Format) preference.Format {
	order := p.Order
	if len(order) == 0 {
		order = preference.DefaultPrecedence
	}
	for _, f := range order {
		if !slices.Contains(rejected, f) {
			return f
		}
	}
	return ""
}

// TablePolicy maps each format to its preferred replacement and falls back
// to precedence when that replacement is rejected too.
type TablePolicy struct {
	Next     map[preference.Format]preference.Format
	Fallback PrecedencePolicy
}

// NewTablePolicy returns text→flashcards, flashcards→video, video→flashcards.
func NewTablePolicy() TablePolicy {
	return TablePolicy{
		Next: map[preference.Format]preference.Format{
			preference.FormatText:       preference.FormatFlashcards,
			preference.FormatFlashcards: preference.FormatVideo,
			preference.FormatVideo:      preference.FormatFlashcards,
		},
		Fallback: NewPrecedencePolicy(),
	}
}

func (t TablePolicy) Substitute(current preference.Format, rejected []preference.Format) preference.Format {
	if next, ok := t.Next[current]; ok && !slices.Contains(rejected, next) {
		return next
	}
	return t.Fallback.Substitute(current, rejected)
}

// Policy names accepted by ParsePolicy.
const (
	PolicyPrecedence = "precedence"
	PolicyTable      = "table"
)

// ParsePolicy returns the named policy. An empty name means precedence.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", PolicyPrecedence:
		return NewPrecedencePolicy(), nil
	case PolicyTable:
		return NewTablePolicy(), nil
	}
	return nil, fmt.Errorf("unknown substitution policy %q", name)
}
