package judge

import (
	"bytes"
	"text/template"

	"github.com/abhisek/lessonloop/internal/preference"
)

const judgeSystemPrompt = `You are a strict reviewer of teaching content. Score each rubric criterion from 0 to 100 on its own merits. Reserve scores above 90 for content with no meaningful flaws. Never reward length for its own sake.`

var judgeTemplate = template.Must(template.New("judge").Parse(`Subject: {{.Subject}}
{{- if .Message}}
Learner message: {{.Message}}
{{- end}}

Learner preferences:
- Format: {{.Prefs.Format}}
- Explanation style: {{.Prefs.ExplanationStyle}}
- Pace: {{.Prefs.Pace}}
- Complexity: {{.Prefs.Complexity}}
- Wants examples: {{.Prefs.WantsExamples}}, analogies: {{.Prefs.WantsAnalogies}}, exercises: {{.Prefs.WantsExercises}}

Rubric:
{{- range .Rubric}}
- {{.Name}} (weight {{.Weight}}){{if .Description}}: {{.Description}}{{end}}
{{- end}}

Content ({{.Format}}):
{{.Content}}

Instructions:
Return one score per rubric criterion using the exact criterion names above, and list concrete improvements for anything below 80.`))

type judgePromptData struct {
	Subject string
	Message string
	Prefs   preference.Snapshot
	Rubric  Rubric
	Format  preference.Format
	Content string
}

func buildJudgeMessage(call EvaluateCall, rubric Rubric) (string, error) {
	data := judgePromptData{
		Subject: call.Request.Subject(),
		Message: call.Request.Message,
		Prefs:   call.Preferences,
		Rubric:  rubric,
		Format:  call.Candidate.Format,
		Content: call.Candidate.Body.Render(),
	}
	var buf bytes.Buffer
	if err := judgeTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
