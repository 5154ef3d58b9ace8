// Package app wires the store, LLM provider, workers and pipeline together
// for the command line.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/abhisek/lessonloop/internal/bus"
	"github.com/abhisek/lessonloop/internal/config"
	"github.com/abhisek/lessonloop/internal/content"
	"github.com/abhisek/lessonloop/internal/detect"
	"github.com/abhisek/lessonloop/internal/judge"
	"github.com/abhisek/lessonloop/internal/llm"
	"github.com/abhisek/lessonloop/internal/pipeline"
	"github.com/abhisek/lessonloop/internal/preference"
	"github.com/abhisek/lessonloop/internal/store"
	"github.com/abhisek/lessonloop/internal/teaching"
)

// Options controls Build.
type Options struct {
	Env    config.Env
	Tuning config.Tuning

	// DBPath is the SQLite database. Required.
	DBPath string

	// LLM overrides provider discovery. Provider "none" disables the LLM.
	LLM *llm.Config

	// Provider, when set, is used as-is instead of building one from LLM.
	Provider llm.Provider

	Logger zerolog.Logger
}

// App holds the wired components. Close releases them.
type App struct {
	Store      *store.Store
	Prefs      preference.Store
	Artifacts  *store.ArtifactRepo
	Registry   *bus.Registry
	Dispatcher *bus.Dispatcher
	Pipeline   *pipeline.Pipeline
	Provider   llm.Provider
	Tuning     config.Tuning

	closers []func() error
}

// Build opens storage, resolves the LLM provider and registers every
// worker. The returned App is ready to run teaching cycles.
func Build(ctx context.Context, opts Options) (_ *App, err error) {
	if opts.DBPath == "" {
		return nil, errors.New("app: database path is required")
	}
	if err := opts.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	log := opts.Logger

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &App{Store: st, Artifacts: st.ArtifactRepo(), Tuning: opts.Tuning}
	a.closers = append(a.closers, st.Close)
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Prefs, err = a.openPreferences(ctx, opts.Env)
	if err != nil {
		return nil, err
	}

	a.Provider, err = resolveProvider(ctx, opts, st.EventRepo())
	if err != nil {
		return nil, err
	}
	if a.Provider == nil {
		log.Warn().Msg("no LLM provider configured; workers run on fallbacks and heuristics")
	} else {
		log.Debug().Str("model", a.Provider.ModelID()).Msg("LLM provider ready")
	}

	a.Registry = bus.NewRegistry(log)
	if err := a.registerWorkers(opts.Tuning, log); err != nil {
		return nil, err
	}
	a.Dispatcher = bus.NewDispatcher(a.Registry,
		bus.WithHistoryCap(opts.Tuning.HistoryCap),
		bus.WithLogger(log),
	)

	sink := &ArtifactSink{Repo: a.Artifacts, Keep: opts.Tuning.KeepArtifacts}
	a.Pipeline, err = pipeline.New(a.Dispatcher, a.Prefs, sink, opts.Tuning.Pipeline(), pipeline.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) openPreferences(ctx context.Context, env config.Env) (preference.Store, error) {
	switch env.PreferenceBackend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     env.Redis.Addr,
			Password: env.Redis.Password,
			DB:       env.Redis.DB,
		})
		rs := preference.NewRedisStore(rdb, env.Redis.KeyPrefix)
		a.closers = append(a.closers, rs.Close)
		if err := rs.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", env.Redis.Addr, err)
		}
		return rs, nil
	case config.BackendMemory:
		return preference.NewMemoryStore(), nil
	case config.BackendSQLite, "":
		return a.Store.PreferenceRepo(), nil
	}
	return nil, fmt.Errorf("unknown preference backend %q", env.PreferenceBackend)
}

func resolveProvider(ctx context.Context, opts Options, events store.EventRepo) (llm.Provider, error) {
	if opts.Provider != nil {
		return opts.Provider, nil
	}
	var cfg llm.Config
	if opts.LLM != nil {
		cfg = *opts.LLM
	} else {
		discovered, ok, err := config.LLMConfig()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		cfg = discovered
	}
	if cfg.Provider == llm.ProviderNone {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return llm.NewProvider(ctx, cfg, events)
}

// registerWorkers registers one content worker per format under the name
// the worker table gives it, plus the detector and judge.
func (a *App) registerWorkers(t config.Tuning, log zerolog.Logger) error {
	pc := t.Pipeline()
	for _, f := range preference.KnownFormats() {
		w, ok := content.NewForFormat(f, a.Provider, t.Content(), content.WithLogger(log))
		if !ok {
			continue
		}
		name := pc.Workers[f]
		if name == "" {
			name = w.Name()
		}
		a.Registry.Register(name, w)
	}

	j, err := judge.New(a.Provider, t.Judge(), judge.WithLogger(log))
	if err != nil {
		return fmt.Errorf("judge: %w", err)
	}
	a.Registry.Register(pc.JudgeName, j)
	a.Registry.Register(pc.DetectorName, detect.New(a.Provider, t.Detector(), detect.WithLogger(log)))
	return nil
}

// Teach runs one teaching cycle.
func (a *App) Teach(ctx context.Context, req teaching.Request) (*teaching.Result, error) {
	return a.Pipeline.RunTeachingCycle(ctx, req)
}

// Close releases every resource Build opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
