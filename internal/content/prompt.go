package content

import (
	"fmt"
	"strings"

	"github.com/abhisek/lessonloop/internal/teaching"
)

const textSystemPrompt = `You are a patient, precise tutor. You write short written lessons that explain one concept well. Follow the learner's style directives exactly.`

const videoSystemPrompt = `You are an educational video scriptwriter. You write scene-by-scene scripts for short explainer videos: each scene pairs spoken narration with a concrete on-screen visual. Follow the learner's style directives exactly.`

const flashcardSystemPrompt = `You are a study coach who writes flashcard decks. Each card tests one idea with a crisp question on the front and a short, correct answer on the back. Follow the learner's style directives exactly.`

func buildUserMessage(call GenerateCall, instructions string) string {
	var b strings.Builder
	req := call.Request

	b.WriteString(fmt.Sprintf("Subject: %s\n", req.Subject()))
	if l := req.Lesson; l != nil {
		if l.Title != "" {
			b.WriteString(fmt.Sprintf("Lesson: %s\n", l.Title))
		}
		if l.Topic != "" {
			b.WriteString(fmt.Sprintf("Topic: %s\n", l.Topic))
		}
		if l.Description != "" {
			b.WriteString(fmt.Sprintf("Description: %s\n", l.Description))
		}
	}
	if req.Message != "" {
		b.WriteString(fmt.Sprintf("\nLearner message:\n%s\n", req.Message))
	}

	if len(req.History) > 0 {
		b.WriteString("\nRecent conversation:\n")
		turns := req.History
		if len(turns) > maxHistoryInPrompt {
			turns = turns[len(turns)-maxHistoryInPrompt:]
		}
		for _, t := range turns {
			b.WriteString(fmt.Sprintf("- %s: %s\n", t.Role, t.Content))
		}
	}

	if call.Directives != "" {
		b.WriteString(fmt.Sprintf("\nStyle directives:\n%s\n", call.Directives))
	}

	if fb := call.PriorFeedback; fb != nil {
		writeFeedback(&b, fb, call.Attempt)
	}

	b.WriteString("\nInstructions:\n")
	b.WriteString(instructions)
	return b.String()
}

func writeFeedback(b *strings.Builder, fb *teaching.Evaluation, attempt int) {
	b.WriteString(fmt.Sprintf("\nA previous draft scored %d/100 and was rejected. This is attempt %d. Fix these issues:\n", fb.TotalScore, attempt))
	for _, imp := range fb.Improvements {
		b.WriteString(fmt.Sprintf("- %s\n", imp))
	}
	for _, c := range fb.Breakdown {
		if c.Feedback == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("- %s (%d/100): %s\n", c.Criterion, c.Score, c.Feedback))
	}
}

const textInstructions = `1. Explain the subject in plain language at the requested complexity.
2. Include a worked example and an analogy only when the directives ask for them; otherwise return empty strings.
3. Include 2-4 exercises only when the directives ask for them; otherwise return an empty list.
4. End with a one or two sentence summary.
5. Stay on the subject. Do not invent facts.`

const videoInstructions = `1. Write 3-8 scenes that build the idea step by step.
2. Each scene needs narration, a concrete visual description, and a duration between 5 and 60 seconds.
3. Keep total length under 4 minutes; use fewer, slower scenes when the pace is slow.
4. Use examples and analogies in the visuals only when the directives ask for them.
5. Stay on the subject. Do not invent facts.`

const flashcardInstructions = `1. Write 5-12 cards ordered from foundational to advanced.
2. Each front asks exactly one question; each back answers it in one or two sentences.
3. Match the requested complexity. Add an example card only when the directives ask for examples.
4. Avoid duplicate or trick questions.
5. Stay on the subject. Do not invent facts.`
