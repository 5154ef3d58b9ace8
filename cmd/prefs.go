package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/lessonloop/internal/preference"
	"github.com/abhisek/lessonloop/internal/ui/report"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Inspect or reset a learner's stored preferences",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored preference snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")

		a, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.Prefs.Get(cmd.Context(), user)
		if err != nil {
			return fmt.Errorf("read preferences: %w", err)
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}
		fmt.Fprintln(out, report.Preferences(user, snap))
		return nil
	},
}

var prefsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset preferences to defaults",
	Long:  "Reset every preference field, or only the ones named with --field, back to the default value. The reset counts as one change.",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		names, _ := cmd.Flags().GetStringSlice("field")

		fields := preference.AllFields()
		if len(names) > 0 {
			fields = fields[:0]
			for _, n := range names {
				f, err := preference.ParseField(n)
				if err != nil {
					return err
				}
				fields = append(fields, f)
			}
		}

		a, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := resetFields(cmd, a.Prefs, user, fields)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.Preferences(user, snap))
		return nil
	},
}

// resetFields removes fields through the optimistic Apply path so a reset
// racing a teaching cycle is retried instead of overwritten.
func resetFields(cmd *cobra.Command, prefs preference.Store, user string, fields []preference.Field) (preference.Snapshot, error) {
	var delta preference.Delta
	for _, f := range fields {
		delta.Remove(f)
	}

	ctx := cmd.Context()
	for range 3 {
		cur, err := prefs.Get(ctx, user)
		if err != nil {
			return preference.Snapshot{}, fmt.Errorf("read preferences: %w", err)
		}
		res, err := prefs.Apply(ctx, user, delta, cur.ChangeCount)
		if err != nil {
			return preference.Snapshot{}, fmt.Errorf("reset preferences: %w", err)
		}
		if res.Applied {
			return res.Snapshot, nil
		}
	}
	return preference.Snapshot{}, fmt.Errorf("reset preferences for %s: too many concurrent updates", user)
}

func init() {
	for _, c := range []*cobra.Command{prefsShowCmd, prefsResetCmd} {
		c.Flags().StringP("user", "u", "", "Learner ID (required)")
		_ = c.MarkFlagRequired("user")
	}
	prefsShowCmd.Flags().Bool("json", false, "Print the snapshot as JSON")
	prefsResetCmd.Flags().StringSlice("field", nil, "Field to reset (repeatable): format, explanation_style, pace, complexity, wants_examples, wants_analogies, wants_exercises")

	prefsCmd.AddCommand(prefsShowCmd)
	prefsCmd.AddCommand(prefsResetCmd)
}
