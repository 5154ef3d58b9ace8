package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lessonloop/internal/teaching"
	"github.com/abhisek/lessonloop/internal/ui/report"
)

var teachCmd = &cobra.Command{
	Use:   "teach [message...]",
	Short: "Run one teaching cycle for a learner message",
	Example: `  lessonloop teach --user ada "I hate text, give me flashcards"
  lessonloop teach --user ada --topic fractions --title "Adding fractions" --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := teachRequest(cmd, args)
		if err != nil {
			return err
		}

		a, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Teach(cmd.Context(), req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		width, _ := cmd.Flags().GetInt("width")
		fmt.Fprintln(out, report.Result(res, width))
		return nil
	},
}

func teachRequest(cmd *cobra.Command, args []string) (teaching.Request, error) {
	user, _ := cmd.Flags().GetString("user")
	message, _ := cmd.Flags().GetString("message")
	if message == "" {
		message = strings.Join(args, " ")
	}
	req := teaching.Request{UserID: user, Message: message}

	title, _ := cmd.Flags().GetString("title")
	topic, _ := cmd.Flags().GetString("topic")
	desc, _ := cmd.Flags().GetString("description")
	if title != "" || topic != "" || desc != "" {
		req.Lesson = &teaching.LessonContext{Title: title, Topic: topic, Description: desc}
	}

	if err := req.Validate(); err != nil {
		return teaching.Request{}, fmt.Errorf("invalid request: %w", err)
	}
	return req, nil
}

func init() {
	f := teachCmd.Flags()
	f.StringP("user", "u", "", "Learner ID (required)")
	f.StringP("message", "m", "", "Learner message (defaults to the positional arguments)")
	f.String("title", "", "Lesson title")
	f.String("topic", "", "Lesson topic")
	f.String("description", "", "Lesson description")
	f.Bool("json", false, "Print the full result as JSON")
	f.Int("width", report.DefaultWidth, "Render width for the report")
	_ = teachCmd.MarkFlagRequired("user")
}
