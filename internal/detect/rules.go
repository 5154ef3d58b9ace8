package detect

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/abhisek/lessonloop/internal/preference"
	"github.com/abhisek/lessonloop/internal/teaching"
)

// ruleResult is what the rule phase extracted from one message.
type ruleResult struct {
	delta     preference.Delta
	rejected  []preference.Format
	requested preference.Format
	stuck     bool
}

func (r ruleResult) formatTouched() bool {
	return len(r.rejected) > 0 || r.requested != "" || r.delta.Removes(preference.FieldFormat)
}

func (r ruleResult) hit() bool {
	return r.formatTouched() || !r.delta.IsEmpty() || r.stuck
}

var clauseSplit = regexp.MustCompile(`[.;!?\n,]+|\s+(?:but|though|however|so)\s+`)

var (
	removeAllRe = regexp.MustCompile(`\b(?:forget|reset|clear|remove|drop)\s+(?:all\s+)?(?:of\s+)?(?:my\s+)?(?:preferences|settings)\b`)
	removeOneRe = regexp.MustCompile(`\b(?:forget|reset|clear|remove|drop|undo)\s+(?:my\s+)?(?:the\s+)?([a-z ]+?)\s+(?:preference|preferences|setting|settings)\b`)
)

var fieldAliases = map[string]preference.Field{
	"format":            preference.FieldFormat,
	"formats":           preference.FieldFormat,
	"content format":    preference.FieldFormat,
	"style":             preference.FieldExplanationStyle,
	"explanation":       preference.FieldExplanationStyle,
	"explanation style": preference.FieldExplanationStyle,
	"length":            preference.FieldExplanationStyle,
	"pace":              preference.FieldPace,
	"speed":             preference.FieldPace,
	"complexity":        preference.FieldComplexity,
	"level":             preference.FieldComplexity,
	"difficulty":        preference.FieldComplexity,
	"example":           preference.FieldWantsExamples,
	"examples":          preference.FieldWantsExamples,
	"analogy":           preference.FieldWantsAnalogies,
	"analogies":         preference.FieldWantsAnalogies,
	"exercise":          preference.FieldWantsExercises,
	"exercises":         preference.FieldWantsExercises,
	"practice":          preference.FieldWantsExercises,
}

var formatWords = map[string]preference.Format{
	"text":       preference.FormatText,
	"texts":      preference.FormatText,
	"reading":    preference.FormatText,
	"written":    preference.FormatText,
	"article":    preference.FormatText,
	"articles":   preference.FormatText,
	"prose":      preference.FormatText,
	"paragraphs": preference.FormatText,
	"video":      preference.FormatVideo,
	"videos":     preference.FormatVideo,
	"watch":      preference.FormatVideo,
	"visual":     preference.FormatVideo,
	"visuals":    preference.FormatVideo,
	"animation":  preference.FormatVideo,
	"animations": preference.FormatVideo,
	"flashcard":  preference.FormatFlashcards,
	"flashcards": preference.FormatFlashcards,
	"card":       preference.FormatFlashcards,
	"cards":      preference.FormatFlashcards,
}

// Words directly before a format word that mark it as requested, as in
// "explain it as flashcards" or "teach me via video".
var formatPrepositions = []string{"as", "in", "via", "through", "with"}

var (
	rejectCues = []string{
		"hate", "don't like", "dont like", "do not like", "dislike", "no more",
		"don't want", "dont want", "do not want",
		"stop", "tired of", "sick of", "not a fan of", "can't stand", "cant stand",
		"enough with", "no", "not", "never", "boring",
	}
	requestCues = []string{
		"give me", "i want", "i'd like", "id like", "i would like", "prefer",
		"switch to", "show me", "can i get", "can i have", "can you make",
		"make it", "let's do", "lets do", "use", "try", "how about", "send me",
		"go with", "i like", "i love", "want", "i'd rather", "id rather", "rather",
	}
	comparatives = []string{" rather than ", " instead of ", " over ", " not "}

	// A negation directly before a request cue turns it into a rejection:
	// "don't use text", "do not give me video".
	negations = []string{"don't", "dont", "do not", "never", "no"}

	detailedCues = []string{
		"more detail", "more details", "detailed", "in depth", "elaborate",
		"too short", "longer", "thorough", "go deeper", "explain more",
	}
	conciseCues = []string{
		"shorter", "concise", "brief", "briefly", "too long", "too wordy",
		"less detail", "to the point", "keep it short", "short answer",
		"short version", "summarize",
	}
	balancedCues = []string{"balanced", "medium length"}

	slowCues = []string{
		"slow down", "slower", "too fast", "step by step", "one step at a time",
		"more slowly", "take it slow",
	}
	fastCues = []string{
		"speed up", "faster", "too slow", "hurry", "skip ahead", "quicker",
		"move on", "pick up the pace",
	}

	beginnerCues = []string{
		"beginner", "simpler", "simple terms", "simplify", "eli5", "like i'm five",
		"like im five", "basics", "too hard", "too complicated", "too advanced",
		"new to", "dumb it down", "plain english",
	}
	advancedCues = []string{
		"advanced", "more technical", "too easy", "too basic", "too simple",
		"expert", "challenge me", "harder", "rigorous",
	}
	intermediateCues = []string{"intermediate"}

	featureNegCues = []string{
		"no", "without", "skip", "stop", "fewer", "less", "don't", "dont",
		"do not", "hate", "too many", "enough", "drop",
	}
	examplesWords  = []string{"example", "examples"}
	analogiesWords = []string{"analogy", "analogies", "metaphor", "metaphors"}
	exercisesWords = []string{"exercise", "exercises", "practice", "practise"}

	stuckCues = []string{
		"don't understand", "dont understand", "do not understand",
		"don't get it", "dont get it", "confused", "confusing", "i'm lost",
		"im lost", "makes no sense", "doesn't make sense", "doesnt make sense",
		"not clear", "what do you mean", "i'm stuck", "im stuck", "stuck",
		"still don't", "lost me", "huh",
	}

	// Phrases that use a feature word without asking for the feature.
	fillerPhrases = []string{"for example", "for instance"}
)

// normalize lowercases text and collapses it to space-separated word
// tokens padded with a leading and trailing space, so cues can be matched
// as " cue " without partial-word hits.
func normalize(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, "’", "'"))
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	if len(words) == 0 {
		return ""
	}
	return " " + strings.Join(words, " ") + " "
}

func hasCue(norm string, cues []string) bool {
	for _, c := range cues {
		if strings.Contains(norm, " "+c+" ") {
			return true
		}
	}
	return false
}

// formatsIn returns the formats mentioned in a normalized clause, in order,
// and whether any of them follows a requesting preposition.
func formatsIn(norm string) ([]preference.Format, bool) {
	var out []preference.Format
	prepositioned := false
	words := strings.Fields(norm)
	for i, w := range words {
		f, ok := formatWords[w]
		if !ok {
			continue
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
		if i > 0 && slices.Contains(formatPrepositions, words[i-1]) {
			prepositioned = true
		}
	}
	return out, prepositioned
}

// applyRules runs the rule phase over a message.
func applyRules(message string, history []teaching.PriorTurn) ruleResult {
	var r ruleResult
	lower := strings.ToLower(message)

	if removeAllRe.MatchString(lower) {
		for _, f := range preference.AllFields() {
			r.delta.Remove(f)
		}
	}

	for _, raw := range clauseSplit.Split(lower, -1) {
		norm := normalize(raw)
		if norm == "" {
			continue
		}
		if removeAllRe.MatchString(raw) {
			continue
		}
		if m := removeOneRe.FindStringSubmatch(raw); m != nil {
			for _, name := range strings.Split(m[1], " and ") {
				if f, ok := fieldAliases[strings.TrimSpace(name)]; ok {
					r.delta.Remove(f)
				}
			}
			continue
		}
		r.formatClause(norm)
		r.styleClause(norm)
	}

	r.stuck = isStuck(message, history)
	if r.requested != "" && slices.Contains(r.rejected, r.requested) {
		r.requested = ""
	}
	return r
}

func (r *ruleResult) reject(fs ...preference.Format) {
	for _, f := range fs {
		if !slices.Contains(r.rejected, f) {
			r.rejected = append(r.rejected, f)
		}
	}
}

func (r *ruleResult) formatClause(norm string) {
	want, against := norm, ""
	for _, sep := range comparatives {
		if i := strings.Index(norm, sep); i >= 0 {
			// Keep the separator's padding so both halves stay " word " framed.
			want, against = norm[:i+1], norm[i+len(sep)-1:]
			break
		}
	}

	if against != "" {
		if fs, _ := formatsIn(against); len(fs) > 0 {
			r.reject(fs...)
		}
	}

	fs, prepositioned := formatsIn(want)
	if len(fs) == 0 {
		return
	}
	switch {
	case negatedRequest(want), hasCue(want, rejectCues):
		r.reject(fs...)
	case hasCue(want, requestCues) || prepositioned:
		r.requested = fs[len(fs)-1]
	}
}

func negatedRequest(norm string) bool {
	for _, n := range negations {
		if !strings.Contains(norm, " "+n+" ") {
			continue
		}
		for _, c := range requestCues {
			if strings.Contains(norm, " "+n+" "+c+" ") {
				return true
			}
		}
	}
	return false
}

func (r *ruleResult) styleClause(norm string) {
	switch {
	case hasCue(norm, detailedCues):
		r.delta.SetExplanationStyle(preference.StyleDetailed)
	case hasCue(norm, conciseCues):
		r.delta.SetExplanationStyle(preference.StyleConcise)
	case hasCue(norm, balancedCues):
		r.delta.SetExplanationStyle(preference.StyleBalanced)
	}

	switch {
	case hasCue(norm, slowCues):
		r.delta.SetPace(preference.PaceSlow)
	case hasCue(norm, fastCues):
		r.delta.SetPace(preference.PaceFast)
	}

	switch {
	case hasCue(norm, beginnerCues):
		r.delta.SetComplexity(preference.ComplexityBeginner)
	case hasCue(norm, advancedCues):
		r.delta.SetComplexity(preference.ComplexityAdvanced)
	case hasCue(norm, intermediateCues):
		r.delta.SetComplexity(preference.ComplexityIntermediate)
	}

	for _, p := range fillerPhrases {
		norm = strings.ReplaceAll(norm, " "+p+" ", " ")
	}
	negated := hasCue(norm, featureNegCues)
	if hasCue(norm, examplesWords) {
		r.delta.SetWantsExamples(!negated)
	}
	if hasCue(norm, analogiesWords) {
		r.delta.SetWantsAnalogies(!negated)
	}
	if hasCue(norm, exercisesWords) {
		r.delta.SetWantsExercises(!negated)
	}
}

// isStuck reports confusion phrases or a message that repeats an earlier
// learner turn.
func isStuck(message string, history []teaching.PriorTurn) bool {
	norm := normalize(message)
	if norm == "" {
		return false
	}
	if hasCue(norm, stuckCues) {
		return true
	}
	for _, t := range history {
		if t.Role == "user" && normalize(t.Content) == norm {
			return true
		}
	}
	return false
}
