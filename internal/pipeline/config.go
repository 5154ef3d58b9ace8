package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/lessonloop/internal/content"
	"github.com/abhisek/lessonloop/internal/detect"
	"github.com/abhisek/lessonloop/internal/judge"
	"github.com/abhisek/lessonloop/internal/preference"
	"github.com/abhisek/lessonloop/internal/style"
)

// Defaults for Config.
const (
	DefaultMaxAttempts   = 3
	DefaultWorkerTimeout = 60 * time.Second
)

// Config tunes a Pipeline.
type Config struct {
	// MaxAttempts bounds the generate/evaluate rounds per cycle.
	MaxAttempts int

	// PassThreshold is the total score an evaluation needs to be accepted.
	PassThreshold int

	// WorkerTimeout bounds every individual worker call.
	WorkerTimeout time.Duration

	// Workers maps each content format to the registry name serving it.
	Workers map[preference.Format]string

	DetectorName string
	JudgeName    string

	// Rubric shapes the zero-score evaluations recorded for failed calls.
	// It should match the judge's rubric.
	Rubric judge.Rubric

	// DirectiveCacheSize bounds the per-user style directive cache.
	DirectiveCacheSize int
}

// DefaultWorkers is the standard format to worker table.
func DefaultWorkers() map[preference.Format]string {
	return map[preference.Format]string{
		preference.FormatText:       content.TextWorkerName,
		preference.FormatVideo:      content.VideoWorkerName,
		preference.FormatFlashcards: content.FlashcardWorkerName,
	}
}

// DefaultConfig returns the standard pipeline settings.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:        DefaultMaxAttempts,
		PassThreshold:      judge.DefaultPassThreshold,
		WorkerTimeout:      DefaultWorkerTimeout,
		Workers:            DefaultWorkers(),
		DetectorName:       detect.WorkerName,
		JudgeName:          judge.WorkerName,
		Rubric:             judge.DefaultRubric(),
		DirectiveCacheSize: style.DefaultCacheSize,
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts))
	}
	if c.PassThreshold < 0 || c.PassThreshold > 100 {
		errs = append(errs, fmt.Errorf("pass threshold must be within 0..100, got %d", c.PassThreshold))
	}
	if c.WorkerTimeout <= 0 {
		errs = append(errs, errors.New("worker timeout must be positive"))
	}
	if c.JudgeName == "" {
		errs = append(errs, errors.New("judge name is required"))
	}
	if c.Workers[preference.FormatText] == "" {
		errs = append(errs, errors.New("a worker for the text format is required"))
	}
	for f := range c.Workers {
		if !f.Valid() {
			errs = append(errs, fmt.Errorf("unknown format %q in worker table", f))
		}
	}
	if err := c.Rubric.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// workerFor returns the worker name for format. Unknown or unmapped
// formats go to the text worker.
func (c Config) workerFor(format preference.Format) (preference.Format, string) {
	if name, ok := c.Workers[format]; ok && format.Valid() && name != "" {
		return format, name
	}
	return preference.FormatText, c.Workers[preference.FormatText]
}
