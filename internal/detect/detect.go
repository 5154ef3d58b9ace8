// Package detect finds preference signals in learner messages. A rule
// phase handles explicit cues; an optional LLM phase fills in implicit
// signals for fields the rules did not touch.
package detect

import (
	"context"
	"slices"

	"github.com/rs/zerolog"

	"github.com/abhisek/lessonloop/internal/bus"
	"github.com/abhisek/lessonloop/internal/llm"
	"github.com/abhisek/lessonloop/internal/preference"
	"github.com/abhisek/lessonloop/internal/teaching"
)

// WorkerName is the detector's registry name.
const WorkerName = "preference-detector"

// RuleConfidence is reported whenever the rule phase matched.
const RuleConfidence = 90

// DetectCall is the payload the detector receives.
type DetectCall struct {
	UserID  string
	Message string
	History []teaching.PriorTurn
	Current preference.Snapshot
}

// Detection is the detector's verdict. RecommendedFormat is never in
// Rejected unless every known format was rejected.
type Detection struct {
	Delta             preference.Delta    `json:"delta"`
	RecommendedFormat preference.Format   `json:"recommended_format"`
	Rejected          []preference.Format `json:"rejected,omitempty"`
	Stuck             bool                `json:"stuck"`
	Confidence        int                 `json:"confidence"`
}

// Config holds detector settings.
type Config struct {
	Policy           Policy
	MinLLMConfidence int
	MaxTokens        int
	Temperature      float64
}

// DefaultConfig uses the precedence policy.
func DefaultConfig() Config {
	return Config{
		Policy:           NewPrecedencePolicy(),
		MinLLMConfidence: 60,
		MaxTokens:        300,
		Temperature:      0,
	}
}

// Detector implements the preference detector worker.
type Detector struct {
	provider llm.Provider
	cfg      Config
	log      zerolog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the detector's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Detector) { d.log = log }
}

// New creates a detector. provider may be nil to run rules only.
func New(provider llm.Provider, cfg Config, opts ...Option) *Detector {
	if cfg.Policy == nil {
		cfg.Policy = NewPrecedencePolicy()
	}
	d := &Detector{provider: provider, cfg: cfg, log: zerolog.Nop()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Detect never fails. LLM errors degrade to the rule result.
func (d *Detector) Detect(ctx context.Context, call DetectCall) Detection {
	current := call.Current.Normalize()
	r := applyRules(call.Message, call.History)

	confidence := 0
	if r.hit() {
		confidence = RuleConfidence
	}

	if d.provider != nil && call.Message != "" {
		out, err := d.detectLLM(ctx, call)
		switch {
		case err != nil:
			d.log.Debug().Err(err).Str("user", call.UserID).Msg("LLM detection unavailable, using rules only")
		case out.Confidence < d.cfg.MinLLMConfidence:
			d.log.Debug().Int("confidence", out.Confidence).Msg("ignoring low-confidence LLM signals")
		default:
			if mergeLLM(&r, out) && confidence == 0 {
				confidence = out.Confidence
			}
		}
	}

	delta, recommended, rejected := d.resolve(current, r)
	return Detection{
		Delta:             delta,
		RecommendedFormat: recommended,
		Rejected:          rejected,
		Stuck:             r.stuck,
		Confidence:        confidence,
	}
}

// resolve applies the substitution policy and drops no-op changes.
func (d *Detector) resolve(current preference.Snapshot, r ruleResult) (preference.Delta, preference.Format, []preference.Format) {
	delta := r.delta
	rejected := slices.Clone(r.rejected)
	cur := current.Format

	if delta.Removes(preference.FieldFormat) && !slices.Contains(rejected, cur) {
		rejected = append(rejected, cur)
	}

	var recommended preference.Format
	switch {
	case r.requested.Valid() && !slices.Contains(rejected, r.requested):
		recommended = r.requested
	case slices.Contains(rejected, cur):
		recommended = d.cfg.Policy.Substitute(cur, rejected)
		if !recommended.Valid() {
			recommended = firstOther(cur)
		}
	default:
		recommended = cur
	}

	if recommended != cur {
		delta.SetFormat(recommended)
	}
	return pruneNoops(delta, current), recommended, rejected
}

// firstOther is the fallback when every known format is rejected.
func firstOther(cur preference.Format) preference.Format {
	for _, f := range preference.DefaultPrecedence {
		if f != cur {
			return f
		}
	}
	return cur
}

// pruneNoops drops sets and removals that would not change current, so an
// accepted delta always moves the stored record.
func pruneNoops(d preference.Delta, current preference.Snapshot) preference.Delta {
	changed := preference.ChangedFields(current, d.ApplyTo(current))
	var drop []preference.Field
	for _, f := range d.Touched() {
		if !slices.Contains(changed, f) {
			drop = append(drop, f)
		}
	}
	if len(drop) == 0 {
		return d
	}
	return d.Without(drop)
}

// Receive adapts Detect to the bus.
func (d *Detector) Receive(ctx context.Context, env bus.Envelope) bus.Result {
	switch p := env.Payload.(type) {
	case DetectCall:
		return bus.OK(d.Detect(ctx, p))
	case *DetectCall:
		if p != nil {
			return bus.OK(d.Detect(ctx, *p))
		}
	}
	return bus.Fail(bus.ErrWorkerFault, "preference-detector: unexpected payload %T", env.Payload)
}
