// Package style turns a preference snapshot into the prompt directives
// content workers follow, and caches them per user.
package style

import (
	"fmt"
	"strings"

	"github.com/abhisek/lessonloop/internal/preference"
)

// Compose renders the directives for s. The output depends only on s.
func Compose(s preference.Snapshot) string {
	s = s.Normalize()
	var b strings.Builder

	switch s.ExplanationStyle {
	case preference.StyleConcise:
		b.WriteString("- Be concise: short sentences, only the essential points.\n")
	case preference.StyleDetailed:
		b.WriteString("- Be thorough: cover the reasoning behind each step and common pitfalls.\n")
	default:
		b.WriteString("- Balance brevity and depth: explain the key idea fully, skip tangents.\n")
	}

	switch s.Pace {
	case preference.PaceSlow:
		b.WriteString("- Go slowly: one idea at a time, with small steps.\n")
	case preference.PaceFast:
		b.WriteString("- Move quickly: assume the learner picks things up fast.\n")
	default:
		b.WriteString("- Use a steady pace.\n")
	}

	switch s.Complexity {
	case preference.ComplexityBeginner:
		b.WriteString("- Assume no prior knowledge. Avoid jargon or define it when used.\n")
	case preference.ComplexityAdvanced:
		b.WriteString("- Assume strong background knowledge. Use precise technical language.\n")
	default:
		b.WriteString("- Assume some background knowledge.\n")
	}

	b.WriteString(fmt.Sprintf("- Worked examples: %s.\n", include(s.WantsExamples)))
	b.WriteString(fmt.Sprintf("- Analogies: %s.\n", include(s.WantsAnalogies)))
	b.WriteString(fmt.Sprintf("- Practice exercises: %s.", include(s.WantsExercises)))
	return b.String()
}

func include(v bool) string {
	if v {
		return "include"
	}
	return "omit"
}
