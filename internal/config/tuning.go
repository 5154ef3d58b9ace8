package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/lessonloop/internal/bus"
	"github.com/abhisek/lessonloop/internal/content"
	"github.com/abhisek/lessonloop/internal/detect"
	"github.com/abhisek/lessonloop/internal/judge"
	"github.com/abhisek/lessonloop/internal/pipeline"
	"github.com/abhisek/lessonloop/internal/preference"
	"github.com/abhisek/lessonloop/internal/style"
)

// Tuning is the pipeline tuning file.
type Tuning struct {
	MaxAttempts        int           `yaml:"max_attempts"`
	PassThreshold      int           `yaml:"pass_threshold"`
	WorkerTimeout      time.Duration `yaml:"worker_timeout"`
	HistoryCap         int           `yaml:"history_cap"`
	DirectiveCacheSize int           `yaml:"directive_cache_size"`

	// KeepArtifacts bounds stored artifacts per user. 0 keeps everything.
	KeepArtifacts int `yaml:"keep_artifacts"`

	Rubric  judge.Rubric      `yaml:"rubric"`
	Workers map[string]string `yaml:"workers"`

	Detection DetectionTuning `yaml:"detection"`
	LLM       LLMBudgets      `yaml:"llm"`
}

// DetectionTuning configures the preference detector.
type DetectionTuning struct {
	// Policy is "precedence" or "table".
	Policy string `yaml:"policy"`

	// Table overrides the table policy's mapping, format to replacement.
	Table map[string]string `yaml:"table,omitempty"`

	// Precedence overrides the substitution order.
	Precedence []string `yaml:"precedence,omitempty"`

	MinLLMConfidence int `yaml:"min_llm_confidence"`
}

// Budget is a per-role LLM request budget.
type Budget struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// LLMBudgets holds one Budget per LLM-backed worker.
type LLMBudgets struct {
	Content  Budget `yaml:"content"`
	Judge    Budget `yaml:"judge"`
	Detector Budget `yaml:"detector"`
}

// DefaultTuning mirrors the package defaults of every component.
func DefaultTuning() Tuning {
	pc := pipeline.DefaultConfig()
	cc := content.DefaultConfig()
	jc := judge.DefaultConfig()
	dc := detect.DefaultConfig()

	workers := make(map[string]string, len(pc.Workers))
	for f, name := range pc.Workers {
		workers[string(f)] = name
	}
	return Tuning{
		MaxAttempts:        pc.MaxAttempts,
		PassThreshold:      pc.PassThreshold,
		WorkerTimeout:      pc.WorkerTimeout,
		HistoryCap:         bus.DefaultHistoryCap,
		DirectiveCacheSize: style.DefaultCacheSize,
		KeepArtifacts:      200,
		Rubric:             judge.DefaultRubric(),
		Workers:            workers,
		Detection: DetectionTuning{
			Policy:           detect.PolicyPrecedence,
			MinLLMConfidence: dc.MinLLMConfidence,
		},
		LLM: LLMBudgets{
			Content:  Budget{MaxTokens: cc.MaxTokens, Temperature: cc.Temperature},
			Judge:    Budget{MaxTokens: jc.MaxTokens, Temperature: jc.Temperature},
			Detector: Budget{MaxTokens: dc.MaxTokens, Temperature: dc.Temperature},
		},
	}
}

// LoadTuning reads path over the defaults. An empty path returns the
// defaults unchanged.
func LoadTuning(path string) (Tuning, error) {
	if path == "" {
		return DefaultTuning(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("failed to read tuning file: %w", err)
	}
	return ParseTuning(data)
}

// ParseTuning decodes YAML over the defaults. Unknown keys are rejected.
// A rubric or worker table in the file replaces the default one whole.
func ParseTuning(data []byte) (Tuning, error) {
	t := DefaultTuning()
	t.Rubric = nil
	t.Workers = nil

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return Tuning{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	def := DefaultTuning()
	if t.Rubric == nil {
		t.Rubric = def.Rubric
	}
	if t.Workers == nil {
		t.Workers = def.Workers
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, fmt.Errorf("invalid tuning: %w", err)
	}
	return t, nil
}

// Validate reports every invalid setting.
func (t Tuning) Validate() error {
	var errs []error
	if t.HistoryCap < 1 {
		errs = append(errs, fmt.Errorf("history_cap must be at least 1, got %d", t.HistoryCap))
	}
	if t.DirectiveCacheSize < 1 {
		errs = append(errs, fmt.Errorf("directive_cache_size must be at least 1, got %d", t.DirectiveCacheSize))
	}
	if t.KeepArtifacts < 0 {
		errs = append(errs, errors.New("keep_artifacts cannot be negative"))
	}
	if _, err := t.Policy(); err != nil {
		errs = append(errs, err)
	}
	if c := t.Detection.MinLLMConfidence; c < 0 || c > 100 {
		errs = append(errs, fmt.Errorf("detection.min_llm_confidence must be within 0..100, got %d", c))
	}
	for role, b := range map[string]Budget{"content": t.LLM.Content, "judge": t.LLM.Judge, "detector": t.LLM.Detector} {
		if b.MaxTokens < 1 {
			errs = append(errs, fmt.Errorf("llm.%s.max_tokens must be positive", role))
		}
		if b.Temperature < 0 || b.Temperature > 2 {
			errs = append(errs, fmt.Errorf("llm.%s.temperature must be within 0..2", role))
		}
	}
	pc, err := t.workerTable()
	if err != nil {
		errs = append(errs, err)
	}
	cfg := t.pipelineConfig(pc)
	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (t Tuning) workerTable() (map[preference.Format]string, error) {
	out := make(map[preference.Format]string, len(t.Workers))
	for name, worker := range t.Workers {
		f, ok := preference.ParseFormat(name)
		if !ok {
			return nil, fmt.Errorf("workers: unknown format %q", name)
		}
		out[f] = worker
	}
	return out, nil
}

func (t Tuning) pipelineConfig(workers map[preference.Format]string) pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.MaxAttempts = t.MaxAttempts
	cfg.PassThreshold = t.PassThreshold
	cfg.WorkerTimeout = t.WorkerTimeout
	cfg.Workers = workers
	cfg.Rubric = t.Rubric
	cfg.DirectiveCacheSize = t.DirectiveCacheSize
	return cfg
}

// Pipeline returns the orchestrator settings.
func (t Tuning) Pipeline() pipeline.Config {
	workers, err := t.workerTable()
	if err != nil {
		workers = pipeline.DefaultWorkers()
	}
	return t.pipelineConfig(workers)
}

// Policy builds the configured substitution policy.
func (t Tuning) Policy() (detect.Policy, error) {
	var order []preference.Format
	for _, name := range t.Detection.Precedence {
		f, ok := preference.ParseFormat(name)
		if !ok {
			return nil, fmt.Errorf("detection.precedence: unknown format %q", name)
		}
		order = append(order, f)
	}

	p, err := detect.ParsePolicy(t.Detection.Policy)
	if err != nil {
		return nil, err
	}
	switch p := p.(type) {
	case detect.PrecedencePolicy:
		if len(order) > 0 {
			p.Order = order
		}
		return p, nil
	case detect.TablePolicy:
		if len(order) > 0 {
			p.Fallback.Order = order
		}
		if len(t.Detection.Table) > 0 {
			p.Next = make(map[preference.Format]preference.Format, len(t.Detection.Table))
			for from, to := range t.Detection.Table {
				ff, ok1 := preference.ParseFormat(from)
				tf, ok2 := preference.ParseFormat(to)
				if !ok1 || !ok2 {
					return nil, fmt.Errorf("detection.table: unknown format in %q: %q", from, to)
				}
				p.Next[ff] = tf
			}
		}
		return p, nil
	}
	return p, nil
}

// Content returns the content worker settings.
func (t Tuning) Content() content.Config {
	return content.Config{MaxTokens: t.LLM.Content.MaxTokens, Temperature: t.LLM.Content.Temperature}
}

// Judge returns the judge settings.
func (t Tuning) Judge() judge.Config {
	cfg := judge.DefaultConfig()
	cfg.Rubric = t.Rubric
	cfg.PassThreshold = t.PassThreshold
	cfg.MaxTokens = t.LLM.Judge.MaxTokens
	cfg.Temperature = t.LLM.Judge.Temperature
	return cfg
}

// Detector returns the detector settings. Call Validate first; an invalid
// policy falls back to precedence.
func (t Tuning) Detector() detect.Config {
	cfg := detect.DefaultConfig()
	if p, err := t.Policy(); err == nil {
		cfg.Policy = p
	}
	cfg.MinLLMConfidence = t.Detection.MinLLMConfidence
	cfg.MaxTokens = t.LLM.Detector.MaxTokens
	cfg.Temperature = t.LLM.Detector.Temperature
	return cfg
}
