package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abhisek/lessonloop/internal/app"
	"github.com/abhisek/lessonloop/internal/config"
	"github.com/abhisek/lessonloop/internal/logx"
	"github.com/abhisek/lessonloop/internal/store"
)

var rootCmd = &cobra.Command{
	Use:          "lessonloop",
	Short:        "Preference-aware lesson generator with a quality gate",
	Long:         "Lessonloop turns a learner message into a lesson, video script or flashcard deck, scores it against a rubric and retries until it passes.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to SQLite database file (overrides LESSONLOOP_DB env var)")
	pf.String("env", "", "Path to a .env file (defaults to ./.env when present)")
	pf.String("config", "", "Path to the pipeline YAML file (overrides LESSONLOOP_PIPELINE_FILE)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.Bool("pretty", false, "Human-readable log output on stderr")

	rootCmd.AddCommand(teachCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(artifactsCmd)
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// settings is everything a command needs before it touches storage.
type settings struct {
	env    config.Env
	tuning config.Tuning
	dbPath string
	log    zerolog.Logger
}

// loadSettings reads the environment and tuning file, applies flag
// overrides and installs the global logger.
func loadSettings(cmd *cobra.Command) (*settings, error) {
	envFile, _ := cmd.Flags().GetString("env")
	env, err := config.LoadEnv(envFile)
	if err != nil {
		return nil, err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		env.Log.Level = lvl
	}
	if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
		env.Log.Pretty = true
	}
	logger := logx.Init(env.Log)

	tuningFile := env.PipelineFile
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		tuningFile = p
	}
	tuning, err := config.LoadTuning(tuningFile)
	if err != nil {
		return nil, err
	}

	dbPath, err := resolveDBPath(cmd, env)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	return &settings{env: env, tuning: tuning, dbPath: dbPath, log: logger}, nil
}

// buildApp wires the full pipeline. The caller closes the returned App.
func buildApp(cmd *cobra.Command) (*app.App, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	return app.Build(cmd.Context(), app.Options{
		Env:    s.env,
		Tuning: s.tuning,
		DBPath: s.dbPath,
		Logger: s.log,
	})
}

// openStore opens only the SQLite store, for commands that inspect history.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(s.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then LESSONLOOP_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, env config.Env) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if env.DB != "" {
		return env.DB, store.EnsureDir(env.DB)
	}
	return store.DefaultDBPath()
}
