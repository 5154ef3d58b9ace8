package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lessonloop/internal/llm"
	"github.com/abhisek/lessonloop/internal/store"
	"github.com/abhisek/lessonloop/internal/ui/theme"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded model calls and their cost",
}

var llmLogCmd = &cobra.Command{
	Use:     "log",
	Aliases: []string{"list"},
	Short:   "Show the most recent model calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts store.QueryOpts
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.Purpose, _ = cmd.Flags().GetString("purpose")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, theme.Hint.Render("No model calls recorded."))
			return nil
		}

		g := newGrid("ID", "When", "Purpose", "Model", "In", "Out", "ms", "").alignRight(0, 4, 5, 6)
		for _, e := range events {
			g.add(e.ID, e.Timestamp.Local().Format(timeLayout), e.Purpose, clip(e.Model, 30),
				e.InputTokens, e.OutputTokens, e.LatencyMs, mark(e.Success))
		}
		g.render(out)
		return nil
	},
}

var llmShowCmd = &cobra.Command{
	Use:     "show <id>",
	Aliases: []string{"view"},
	Short:   "Print the prompt and reply of one model call",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid event id %q", args[0])
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}

		out := cmd.OutOrStdout()
		field := func(label string, v any) {
			fmt.Fprintln(out, theme.Label.Render(label)+fmt.Sprint(v))
		}
		field("Event", e.ID)
		field("When", e.Timestamp.Local().Format(timeLayout))
		field("Provider", e.Provider)
		field("Model", e.Model)
		field("Purpose", e.Purpose)
		field("Tokens", fmt.Sprintf("%d in, %d out", e.InputTokens, e.OutputTokens))
		field("Latency", fmt.Sprintf("%dms", e.LatencyMs))
		field("Outcome", mark(e.Success))
		if e.ErrorMessage != "" {
			field("Error", theme.Fail.Render(e.ErrorMessage))
		}

		section(out, "Prompt", e.RequestBody)
		section(out, "Reply", e.ResponseBody)
		return nil
	},
}

func section(w io.Writer, title, body string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, theme.Heading.Render(title))
	if strings.TrimSpace(body) == "" {
		fmt.Fprintln(w, theme.Hint.Render("(empty)"))
		return
	}
	fmt.Fprintln(w, strings.TrimRight(body, "\n"))
}

var llmUsageCmd = &cobra.Command{
	Use:     "usage",
	Aliases: []string{"stats"},
	Short:   "Summarize token usage per purpose and estimated spend per model",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		repo := s.EventRepo()
		byPurpose, err := repo.LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(byPurpose) == 0 {
			fmt.Fprintln(out, theme.Hint.Render("No model usage recorded."))
			return nil
		}

		fmt.Fprintln(out, theme.Heading.Render("Tokens by purpose"))
		g := newGrid("Purpose", "Calls", "In", "Out", "Avg ms").alignRight(1, 2, 3, 4)
		var calls, in, outTok int
		for _, u := range byPurpose {
			g.add(u.Purpose, u.Calls, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
			calls += u.Calls
			in += u.InputTokens
			outTok += u.OutputTokens
		}
		g.total(totalLabel, calls, in, outTok, "")
		g.render(out)

		byModel, err := repo.LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}
		if len(byModel) == 0 {
			return nil
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, theme.Heading.Render("Estimated spend (USD)"))
		g = newGrid("Model", "Calls", "In", "Out", "Cost").alignRight(1, 2, 3, 4)
		var spend float64
		var unpriced []string
		for _, u := range byModel {
			price := llm.LookupCost(u.Model)
			if price == nil {
				unpriced = append(unpriced, u.Model)
				g.add(clip(u.Model, 34), u.Calls, u.InputTokens, u.OutputTokens, "?")
				continue
			}
			c := price.Cost(u.InputTokens, u.OutputTokens)
			spend += c
			g.add(clip(u.Model, 34), u.Calls, u.InputTokens, u.OutputTokens, usd(c))
		}
		label := totalLabel
		if len(unpriced) > 0 {
			label = totalLabel + " (priced only)"
		}
		g.total(label, "", "", "", usd(spend))
		g.render(out)

		if len(unpriced) > 0 {
			fmt.Fprintln(out, theme.Hint.Render("No price list entry for "+strings.Join(unpriced, ", ")))
		}
		return nil
	},
}

// usd keeps sub-cent amounts visible.
func usd(v float64) string {
	if v > 0 && v < 0.01 {
		return fmt.Sprintf("$%.4f", v)
	}
	return fmt.Sprintf("$%.2f", v)
}

func init() {
	llmLogCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmLogCmd.Flags().StringP("purpose", "p", "", "Only calls with this purpose (content-text, judge, preference-detect)")

	llmCmd.AddCommand(llmLogCmd, llmShowCmd, llmUsageCmd)
}
