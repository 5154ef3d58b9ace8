package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lessonloop/internal/preference"
	"github.com/abhisek/lessonloop/internal/ui/theme"
)

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "List registered workers and the format routing table",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		routes := map[string][]string{}
		for f, name := range a.Pipeline.Config().Workers {
			routes[name] = append(routes[name], string(f))
		}
		for _, fs := range routes {
			slices.Sort(fs)
		}

		g := newGrid("Worker", "Busy", "Queued", "Formats").alignRight(2)
		for _, st := range a.Registry.ListStatuses() {
			busy := "-"
			if st.Busy {
				busy = theme.Warn.Render("busy")
			}
			g.add(st.Name, busy, st.QueueDepth, strings.Join(routes[st.Name], ", "))
		}
		g.render(out)

		model := "none (fallback content, heuristic scoring)"
		if a.Provider != nil {
			model = a.Provider.ModelID()
		}
		fmt.Fprintln(out, theme.Label.Render("Model")+model)
		fmt.Fprintln(out, theme.Label.Render("Formats")+joinFormats(preference.KnownFormats()))
		fmt.Fprintln(out, theme.Label.Render("Pass at")+fmt.Sprintf("%d, up to %d attempts", a.Tuning.PassThreshold, a.Tuning.MaxAttempts))
		return nil
	},
}

func joinFormats(fs []preference.Format) string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
