package cmd

import (
	"fmt"
	"io"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/abhisek/lessonloop/internal/ui/theme"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	totalLabel = "Total"
)

// grid collects rows for a bordered terminal table.
type grid struct {
	headers []string
	rows    [][]string
	footer  []string
	right   map[int]bool
}

func newGrid(headers ...string) *grid {
	return &grid{headers: headers, right: map[int]bool{}}
}

// alignRight right-aligns the given columns, for numbers.
func (g *grid) alignRight(cols ...int) *grid {
	for _, c := range cols {
		g.right[c] = true
	}
	return g
}

func (g *grid) add(cells ...any) {
	row := make([]string, len(cells))
	for i, c := range cells {
		row[i] = fmt.Sprint(c)
	}
	g.rows = append(g.rows, row)
}

// total sets a bold last row.
func (g *grid) total(cells ...any) {
	g.add(cells...)
	g.footer = g.rows[len(g.rows)-1]
	g.rows = g.rows[:len(g.rows)-1]
}

func (g *grid) render(w io.Writer) {
	rows := g.rows
	if g.footer != nil {
		rows = append(rows[:len(rows):len(rows)], g.footer)
	}
	last := len(rows) - 1

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.Border)).
		BorderColumn(false).
		Headers(g.headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				s = s.Bold(true).Foreground(theme.Secondary)
			case g.footer != nil && row == last:
				s = s.Bold(true)
			}
			if g.right[col] {
				s = s.Align(lipgloss.Right)
			}
			return s
		})
	fmt.Fprintln(w, t.String())
}

func mark(ok bool) string {
	if ok {
		return theme.Pass.Render("✓")
	}
	return theme.Fail.Render("✗")
}

// clip shortens s to n runes with an ellipsis. n below one yields "".
func clip(s string, n int) string {
	r := []rune(s)
	switch {
	case len(r) <= n:
		return s
	case n <= 0:
		return ""
	case n == 1:
		return "…"
	}
	return string(r[:n-1]) + "…"
}
