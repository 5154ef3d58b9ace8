// Package pipeline runs teaching cycles: detect preference signals, update
// the stored preferences, generate content in the preferred format and
// regenerate with judge feedback until a candidate passes or the attempt
// budget runs out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/abhisek/lessonloop/internal/bus"
	"github.com/abhisek/lessonloop/internal/content"
	"github.com/abhisek/lessonloop/internal/detect"
	"github.com/abhisek/lessonloop/internal/judge"
	"github.com/abhisek/lessonloop/internal/preference"
	"github.com/abhisek/lessonloop/internal/style"
	"github.com/abhisek/lessonloop/internal/teaching"
)

// SenderName is the From name on every envelope the pipeline sends.
const SenderName = "pipeline"

var (
	// ErrValidation wraps request validation failures.
	ErrValidation = errors.New("invalid teaching request")

	// ErrStoreUnavailable is returned when the preference snapshot cannot
	// be read at the start of a cycle.
	ErrStoreUnavailable = errors.New("preference store unavailable")
)

// Pipeline coordinates one teaching cycle at a time per call. It is safe
// for concurrent use; cycles share only the dispatcher, the store and the
// directive cache.
type Pipeline struct {
	dispatcher *bus.Dispatcher
	prefs      preference.Store
	sink       Sink
	directives *style.Cache
	cfg        Config
	log        zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// New creates a pipeline. sink may be nil.
func New(dispatcher *bus.Dispatcher, prefs preference.Store, sink Sink, cfg Config, opts ...Option) (*Pipeline, error) {
	if dispatcher == nil {
		return nil, errors.New("pipeline: dispatcher is required")
	}
	if prefs == nil {
		return nil, errors.New("pipeline: preference store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	if sink == nil {
		sink = NopSink{}
	}
	p := &Pipeline{
		dispatcher: dispatcher,
		prefs:      prefs,
		sink:       sink,
		directives: style.NewCache(cfg.DirectiveCacheSize),
		cfg:        cfg,
		log:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Config returns the pipeline's settings.
func (p *Pipeline) Config() Config { return p.cfg }

// cycle carries the per-call state of RunTeachingCycle.
type cycle struct {
	req   teaching.Request
	res   *teaching.Result
	prefs preference.Snapshot
}

func (c *cycle) enter(s State) {
	c.res.Trace = append(c.res.Trace, string(s))
}

// RunTeachingCycle runs one cycle for req. Once the preference snapshot has
// been read it always returns a result, whether or not any attempt passed.
// The only errors are ErrValidation, ErrStoreUnavailable and the context's
// error when ctx ends first.
func (p *Pipeline) RunTeachingCycle(ctx context.Context, req teaching.Request) (*teaching.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := &cycle{req: req, res: &teaching.Result{}}
	log := p.log.With().Str("user", req.UserID).Logger()

	c.enter(StateInit)
	snap, err := p.prefs.Get(ctx, req.UserID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	c.prefs = snap.Normalize()

	c.enter(StateDetectPreferences)
	det, detected := p.detect(ctx, c)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	overlay := false
	if detected {
		c.res.RecommendedFormat = det.RecommendedFormat
		c.res.Stuck = det.Stuck
		if !det.Delta.IsEmpty() {
			c.enter(StateUpdatePreferences)
			next, changed, err := p.updatePreferences(ctx, req.UserID, c.prefs, det.Delta)
			switch {
			case ctx.Err() != nil:
				return nil, ctx.Err()
			case err != nil:
				// The store went away mid-cycle. Honor the learner's
				// request for this cycle without persisting it.
				log.Warn().Err(err).Msg("preference update failed; using unsaved preferences")
				c.prefs = det.Delta.ApplyTo(c.prefs)
				overlay = true
			default:
				c.prefs = next
				c.res.PreferenceChanged = changed
			}
		}
	}
	c.res.Preferences = c.prefs

	c.enter(StateSelectWorker)
	format, workerName := p.cfg.workerFor(c.prefs.Format)
	c.res.Worker = workerName
	if c.res.RecommendedFormat == "" {
		c.res.RecommendedFormat = format
	}

	var directives string
	if overlay {
		directives = style.Compose(c.prefs)
	} else {
		var regenerated bool
		directives, regenerated = p.directives.Directives(req.UserID, c.prefs)
		if regenerated {
			log.Debug().Uint64("change_count", c.prefs.ChangeCount).Msg("style directives regenerated")
		}
	}

	log.Debug().
		Str("format", string(format)).
		Str("worker", workerName).
		Bool("preference_changed", c.res.PreferenceChanged).
		Msg("teaching cycle started")

	var (
		lastProduced *teaching.Candidate
		final        *teaching.Candidate
		feedback     *teaching.Evaluation
		eval         teaching.Evaluation
	)
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c.enter(StateGenerate)
		rec := teaching.AttemptRecord{Attempt: attempt, Worker: workerName}
		final = nil

		gen := p.send(ctx, workerName, content.GenerateCall{
			Request:       req,
			Directives:    directives,
			PriorFeedback: feedback,
			Attempt:       attempt,
		})
		cand, ok := resultAs[teaching.Candidate](gen)
		if ok {
			cand.Attempt = attempt
			final = &cand
			lastProduced = &cand
			rec.Degraded = cand.Degraded

			c.enter(StateEvaluate)
			ev := p.send(ctx, p.cfg.JudgeName, judge.EvaluateCall{
				Candidate:   cand,
				Request:     req,
				Preferences: c.prefs,
			})
			if eval, ok = resultAs[teaching.Evaluation](ev); !ok {
				rec.Failure = failureReason("evaluation", ev)
				eval = judge.ZeroEvaluation(p.cfg.Rubric, rec.Failure)
			}
		} else {
			rec.Failure = failureReason("generation", gen)
			eval = judge.ZeroEvaluation(p.cfg.Rubric, rec.Failure)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		eval.Passed = eval.TotalScore >= p.cfg.PassThreshold
		rec.Score = eval.TotalScore
		rec.Passed = eval.Passed
		c.res.Attempts = append(c.res.Attempts, rec)
		c.res.AttemptsUsed = attempt

		entry := log.Debug().Int("attempt", attempt).Int("score", eval.TotalScore).Bool("passed", eval.Passed)
		if rec.Failure != "" {
			entry = entry.Str("failure", rec.Failure)
		}
		entry.Msg("attempt evaluated")

		if eval.Passed {
			c.enter(StateAccept)
			break
		}
		if attempt == p.cfg.MaxAttempts {
			c.enter(StateGiveUp)
			break
		}
		c.enter(StateRetry)
		prior := eval
		feedback = &prior
	}

	switch {
	case final != nil:
		c.res.Candidate = *final
	case lastProduced != nil:
		c.res.Candidate = *lastProduced
	default:
		c.res.Candidate = content.Fallback(format, req.Subject(), c.res.AttemptsUsed)
	}
	c.res.Evaluation = eval

	saveCtx := context.WithoutCancel(ctx)
	if err := p.sink.Save(saveCtx, req.UserID, req, c.res.Candidate, c.res.Evaluation); err != nil {
		log.Warn().Err(err).Msg("failed to persist teaching artifact")
	}

	log.Info().
		Int("attempts", c.res.AttemptsUsed).
		Int("score", eval.TotalScore).
		Bool("passed", eval.Passed).
		Str("worker", workerName).
		Msg("teaching cycle finished")

	return c.res, nil
}

// detect asks the detector for signals. A missing or failing detector
// leaves preferences untouched.
func (p *Pipeline) detect(ctx context.Context, c *cycle) (detect.Detection, bool) {
	if p.cfg.DetectorName == "" {
		return detect.Detection{}, false
	}
	r := p.send(ctx, p.cfg.DetectorName, detect.DetectCall{
		UserID:  c.req.UserID,
		Message: c.req.Message,
		History: c.req.History,
		Current: c.prefs,
	})
	det, ok := resultAs[detect.Detection](r)
	if !ok {
		p.log.Debug().Str("detector", p.cfg.DetectorName).Str("err", r.Error()).Msg("preference detection skipped")
	}
	return det, ok
}

// updatePreferences applies delta on top of base. When another writer got
// there first it re-reads, drops the fields that writer changed and retries
// the remainder once. It never applies after ctx ends.
func (p *Pipeline) updatePreferences(ctx context.Context, userID string, base preference.Snapshot, delta preference.Delta) (preference.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return base, false, err
	}
	res, err := p.prefs.Apply(ctx, userID, delta, base.ChangeCount)
	if err != nil {
		return base, false, err
	}
	if res.Applied {
		return res.Snapshot.Normalize(), true, nil
	}

	fresh := res.Snapshot.Normalize()
	remainder := withoutNoops(delta.Without(preference.ChangedFields(base, fresh)), fresh)
	p.log.Debug().
		Str("user", userID).
		Uint64("expected", base.ChangeCount).
		Uint64("stored", fresh.ChangeCount).
		Bool("retrying", !remainder.IsEmpty()).
		Msg("preference update conflict")
	if remainder.IsEmpty() {
		return fresh, false, nil
	}

	if err := ctx.Err(); err != nil {
		return fresh, false, err
	}
	res, err = p.prefs.Apply(ctx, userID, remainder, fresh.ChangeCount)
	if err != nil {
		return fresh, false, err
	}
	return res.Snapshot.Normalize(), res.Applied, nil
}

// withoutNoops drops the parts of d that would not change s.
func withoutNoops(d preference.Delta, s preference.Snapshot) preference.Delta {
	changed := preference.ChangedFields(s, d.ApplyTo(s))
	var drop []preference.Field
	for _, f := range d.Touched() {
		if !slices.Contains(changed, f) {
			drop = append(drop, f)
		}
	}
	return d.Without(drop)
}

// send dispatches payload to a worker under the per-call timeout.
func (p *Pipeline) send(ctx context.Context, to string, payload any) bus.Result {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.WorkerTimeout)
	defer cancel()
	return p.dispatcher.Send(callCtx, SenderName, to, payload, bus.KindRequest, bus.PriorityMedium)
}

// resultAs extracts a T (or *T) from a successful result.
func resultAs[T any](r bus.Result) (T, bool) {
	var zero T
	if !r.OK {
		return zero, false
	}
	switch v := r.Data.(type) {
	case T:
		return v, true
	case *T:
		if v != nil {
			return *v, true
		}
	}
	return zero, false
}

func failureReason(stage string, r bus.Result) string {
	if r.OK {
		return fmt.Sprintf("%s failed: %s returned %T", stage, r.Meta.Worker, r.Data)
	}
	return fmt.Sprintf("%s failed: %s", stage, r.Error())
}
