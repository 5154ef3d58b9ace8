// Package config loads process settings from the environment (optionally
// seeded from a .env file) and pipeline tuning from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/abhisek/lessonloop/internal/llm"
	"github.com/abhisek/lessonloop/internal/logx"
)

// EnvPrefix is shared with the LLM settings.
const EnvPrefix = llm.EnvPrefix

// Preference backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Env holds the LESSONLOOP_* settings that are not LLM specific.
type Env struct {
	// DB is the SQLite path. Empty means the per-user default location.
	DB string `envconfig:"DB"`

	// PipelineFile is the YAML tuning file. Empty means built-in defaults.
	PipelineFile string `envconfig:"PIPELINE_FILE"`

	PreferenceBackend string      `envconfig:"PREFERENCE_BACKEND" default:"sqlite"`
	Redis             RedisConfig `envconfig:"REDIS"`
	Log               logx.Config `envconfig:"LOG"`
}

// RedisConfig locates the Redis preference backend.
type RedisConfig struct {
	Addr      string `envconfig:"ADDR" default:"localhost:6379"`
	Password  string `envconfig:"PASSWORD"`
	DB        int    `envconfig:"DB" default:"0"`
	KeyPrefix string `envconfig:"KEY_PREFIX" default:"lessonloop:prefs:"`
}

// Validate checks the backend selection.
func (e Env) Validate() error {
	switch e.PreferenceBackend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if e.Redis.Addr == "" {
			return fmt.Errorf("%s_REDIS_ADDR is required for the redis backend", EnvPrefix)
		}
	default:
		return fmt.Errorf("unknown preference backend %q", e.PreferenceBackend)
	}
	return nil
}

// LoadEnv exports envFile (or ./.env when envFile is empty and it exists)
// into the process environment and then reads the LESSONLOOP_* variables.
// Variables already set in the environment are overwritten by the file.
func LoadEnv(envFile string) (Env, error) {
	if path := strings.TrimSpace(envFile); path != "" {
		if err := exportEnvironment(path); err != nil {
			return Env{}, fmt.Errorf("load env file: %w", err)
		}
	} else if err := exportEnvironmentIfExists(".env"); err != nil {
		return Env{}, fmt.Errorf("load default env file: %w", err)
	}

	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return Env{}, fmt.Errorf("env config: %w", err)
	}
	if err := env.Validate(); err != nil {
		return Env{}, err
	}
	return env, nil
}

func exportEnvironmentIfExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvironment(path)
}

func exportEnvironment(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	for k, val := range v.AllSettings() {
		if err := os.Setenv(strings.ToUpper(k), fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}

// LLMConfig resolves the LLM settings: explicit LESSONLOOP_* variables
// first, then the vendors' standard API key variables. It reports false
// when no provider has credentials.
func LLMConfig() (llm.Config, bool, error) {
	cfg, err := llm.ConfigFromEnv()
	if err != nil {
		return llm.Config{}, false, err
	}
	if cfg.Provider == llm.ProviderNone {
		return cfg, false, nil
	}
	if cfg.HasKey() {
		return cfg, true, nil
	}
	if discovered, ok := llm.DiscoverConfig(); ok {
		discovered.Retry = cfg.Retry
		discovered.Timeout = cfg.Timeout
		return discovered, true, nil
	}
	return cfg, false, nil
}
