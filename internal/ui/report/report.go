// Package report renders teaching results and preferences for the terminal.
package report

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/lessonloop/internal/preference"
	"github.com/abhisek/lessonloop/internal/teaching"
	"github.com/abhisek/lessonloop/internal/ui/theme"
)

// DefaultWidth is used when the caller does not know the terminal width.
const DefaultWidth = 72

// ScoreBar draws score (0..100) as a horizontal bar followed by the number.
func ScoreBar(score, width int) string {
	barWidth := max(width-4, 4)
	score = min(max(score, 0), 100)

	filled := barWidth * score / 100
	empty := barWidth - filled

	return theme.BarFilled.Render(strings.Repeat(" ", filled)) +
		theme.BarEmpty.Render(strings.Repeat(" ", empty)) +
		fmt.Sprintf(" %3d", score)
}

// Verdict renders PASS or FAIL with the total score.
func Verdict(e teaching.Evaluation) string {
	if e.Passed {
		return theme.Pass.Render(fmt.Sprintf("PASS %d/100", e.TotalScore))
	}
	return theme.Fail.Render(fmt.Sprintf("FAIL %d/100", e.TotalScore))
}

// Result renders the full outcome of a cycle.
func Result(res *teaching.Result, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	var sections []string

	header := theme.Title.Render(res.Candidate.Body.Title())
	if res.Candidate.Degraded {
		header += "  " + theme.Warn.Render("(fallback content)")
	}
	sections = append(sections, header)

	meta := []string{
		field("Format", string(res.Candidate.Format)),
		field("Worker", res.Worker),
		field("Attempts", fmt.Sprintf("%d", res.AttemptsUsed)),
		field("Verdict", Verdict(res.Evaluation)),
	}
	if res.PreferenceChanged {
		meta = append(meta, field("Preferences", "updated"))
	}
	if res.Stuck {
		meta = append(meta, field("Note", theme.Warn.Render("learner seems stuck")))
	}
	sections = append(sections, strings.Join(meta, "\n"))

	body := theme.Body.Width(width - 4).Render(strings.TrimSpace(res.Candidate.Body.Render()))
	sections = append(sections, theme.Card.Render(body))

	sections = append(sections, theme.Heading.Render("Scores"), Breakdown(res.Evaluation, width))

	if len(res.Evaluation.Improvements) > 0 {
		var b strings.Builder
		b.WriteString(theme.Heading.Render("Improvements"))
		for _, imp := range res.Evaluation.Improvements {
			b.WriteString("\n  - " + imp)
		}
		sections = append(sections, b.String())
	}

	if len(res.Attempts) > 1 {
		sections = append(sections, theme.Heading.Render("Attempts"), Attempts(res.Attempts))
	}
	return lipgloss.JoinVertical(lipgloss.Left, joinWithGaps(sections)...)
}

// Breakdown renders one score bar per criterion.
func Breakdown(e teaching.Evaluation, width int) string {
	labelWidth := 12
	for _, c := range e.Breakdown {
		labelWidth = max(labelWidth, lipgloss.Width(c.Criterion)+6)
	}
	barWidth := min(width-labelWidth-2, 40)

	var lines []string
	for _, c := range e.Breakdown {
		label := lipgloss.NewStyle().Width(labelWidth).Render(fmt.Sprintf("%s (%d)", c.Criterion, c.Weight))
		lines = append(lines, label+"  "+ScoreBar(c.Score, barWidth))
	}
	if e.Heuristic {
		lines = append(lines, theme.Hint.Render("scored by heuristics"))
	}
	return strings.Join(lines, "\n")
}

// Attempts renders one line per generate/evaluate round.
func Attempts(attempts []teaching.AttemptRecord) string {
	var lines []string
	for _, a := range attempts {
		verdict := theme.Fail.Render("fail")
		if a.Passed {
			verdict = theme.Pass.Render("pass")
		}
		line := fmt.Sprintf("  #%d  %3d  %s", a.Attempt, a.Score, verdict)
		if a.Degraded {
			line += "  " + theme.Warn.Render("fallback")
		}
		if a.Failure != "" {
			line += "  " + theme.Hint.Render(a.Failure)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Preferences renders a snapshot as labelled lines.
func Preferences(user string, s preference.Snapshot) string {
	lines := []string{
		theme.Title.Render("Preferences for " + user),
		field("Format", string(s.Format)),
		field("Style", string(s.ExplanationStyle)),
		field("Pace", string(s.Pace)),
		field("Complexity", string(s.Complexity)),
		field("Examples", yesNo(s.WantsExamples)),
		field("Analogies", yesNo(s.WantsAnalogies)),
		field("Exercises", yesNo(s.WantsExercises)),
		field("Changes", fmt.Sprintf("%d", s.ChangeCount)),
	}
	return strings.Join(lines, "\n")
}

func field(label, value string) string {
	return theme.Label.Render(label) + value
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func joinWithGaps(sections []string) []string {
	out := make([]string, 0, len(sections)*2)
	for i, s := range sections {
		if i > 0 {
			out = append(out, "")
		}
		out = append(out, s)
	}
	return out
}
