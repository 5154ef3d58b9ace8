package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abhisek/lessonloop/internal/teaching"
	"github.com/abhisek/lessonloop/internal/ui/report"
	"github.com/abhisek/lessonloop/internal/ui/theme"
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Browse accepted and given-up content",
}

var artifactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a learner's stored artifacts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		arts, err := s.ArtifactRepo().List(cmd.Context(), user, limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(arts) == 0 {
			fmt.Fprintln(out, "No artifacts found.")
			return nil
		}

		g := newGrid("ID", "When", "Format", "Try", "Score", "", "Subject").alignRight(0, 3, 4)
		for _, a := range arts {
			format := a.Format
			if a.Degraded {
				format += "*"
			}
			g.add(a.ID, a.Timestamp.Local().Format(timeLayout), format, a.Attempt, a.TotalScore, mark(a.Passed), clip(a.Subject, 36))
		}
		g.render(out)
		fmt.Fprintln(out, theme.Hint.Render("* fallback content"))
		return nil
	},
}

var artifactsViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Render one stored artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid artifact id %q", args[0])
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		arts, err := s.ArtifactRepo().List(cmd.Context(), user, 0)
		if err != nil {
			return err
		}
		for _, a := range arts {
			if a.ID != id {
				continue
			}
			body, eval, err := a.Decode()
			if err != nil {
				return err
			}
			res := &teaching.Result{
				Candidate: teaching.Candidate{
					ID:       a.CandidateID,
					Format:   body.Format(),
					Body:     body,
					Attempt:  a.Attempt,
					Degraded: a.Degraded,
				},
				Evaluation:   eval,
				AttemptsUsed: a.Attempt,
			}
			width, _ := cmd.Flags().GetInt("width")
			fmt.Fprintln(cmd.OutOrStdout(), report.Result(res, width))
			return nil
		}
		return fmt.Errorf("artifact %d not found for %s", id, user)
	},
}

func init() {
	for _, c := range []*cobra.Command{artifactsListCmd, artifactsViewCmd} {
		c.Flags().StringP("user", "u", "", "Learner ID (required)")
		_ = c.MarkFlagRequired("user")
	}
	artifactsListCmd.Flags().IntP("limit", "n", 20, "Number of artifacts to show")
	artifactsViewCmd.Flags().Int("width", report.DefaultWidth, "Render width")

	artifactsCmd.AddCommand(artifactsListCmd)
	artifactsCmd.AddCommand(artifactsViewCmd)
}
