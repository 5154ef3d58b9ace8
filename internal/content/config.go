package content

// Worker names used in the registry.
const (
	TextWorkerName      = "text-worker"
	VideoWorkerName     = "video-worker"
	FlashcardWorkerName = "flashcard-worker"
)

// Limits enforced by ParseCandidateBody.
const (
	MaxScenes       = 12
	MaxSceneSeconds = 120
	MaxCards        = 30
	MaxExercises    = 10
)

const maxHistoryInPrompt = 6

// Config holds generation settings for a content worker.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns sensible defaults for content generation.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   1500,
		Temperature: 0.5,
	}
}
