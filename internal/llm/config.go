package llm

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix for every LLM environment variable,
// e.g. LESSONLOOP_LLM_PROVIDER or LESSONLOOP_ANTHROPIC_API_KEY.
const EnvPrefix = "LESSONLOOP"

// Provider names accepted in Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"

	// ProviderNone disables the LLM. Workers then run on their rule-based
	// and fallback paths.
	ProviderNone = "none"
)

// Config holds all LLM provider configuration.
type Config struct {
	Provider string `envconfig:"LLM_PROVIDER"`

	Anthropic  ProviderConfig `envconfig:"ANTHROPIC"`
	OpenAI     ProviderConfig `envconfig:"OPENAI"`
	Gemini     ProviderConfig `envconfig:"GEMINI"`
	OpenRouter ProviderConfig `envconfig:"OPENROUTER"`
	Retry      RetryConfig    `envconfig:"LLM_RETRY"`

	// Timeout bounds a single Generate call, retries included.
	Timeout time.Duration `envconfig:"LLM_TIMEOUT"`
}

// ProviderConfig is one vendor's credentials. Model accepts the friendly
// aliases in ResolveModel or a raw vendor model ID. BaseURL targets a
// compatible endpoint or a test server.
type ProviderConfig struct {
	APIKey  string `envconfig:"API_KEY"`
	Model   string `envconfig:"MODEL"`
	BaseURL string `envconfig:"BASE_URL"`
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS"`
	InitialWait time.Duration `envconfig:"INITIAL_WAIT"`
	MaxWait     time.Duration `envconfig:"MAX_WAIT"`
	Multiplier  float64       `envconfig:"MULTIPLIER"`
}

// vendor describes one remote backend.
type vendor struct {
	name   string
	keyEnv string // the vendor's own API key variable
	conf   func(*Config) *ProviderConfig
}

// vendors is in discovery order.
var vendors = []vendor{
	{ProviderAnthropic, "ANTHROPIC_API_KEY", func(c *Config) *ProviderConfig { return &c.Anthropic }},
	{ProviderOpenAI, "OPENAI_API_KEY", func(c *Config) *ProviderConfig { return &c.OpenAI }},
	{ProviderGemini, "GEMINI_API_KEY", func(c *Config) *ProviderConfig { return &c.Gemini }},
	{ProviderOpenRouter, "OPENROUTER_API_KEY", func(c *Config) *ProviderConfig { return &c.OpenRouter }},
}

func lookupVendor(name string) (vendor, bool) {
	for _, v := range vendors {
		if v.name == name {
			return v, true
		}
	}
	return vendor{}, false
}

// DefaultConfig returns the defaults: Anthropic with the small model,
// three attempts and a 45s budget per call.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderAnthropic,
		Anthropic:  ProviderConfig{Model: "claude-haiku"},
		OpenAI:     ProviderConfig{Model: "gpt-mini"},
		Gemini:     ProviderConfig{Model: "gemini-flash"},
		OpenRouter: ProviderConfig{Model: "google/gemini-2.5-flash"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 45 * time.Second,
	}
}

// ConfigFromEnv overlays LESSONLOOP_* environment variables on the
// defaults. Unset variables keep their default.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("llm config: %w", err)
	}
	return cfg, nil
}

// DiscoverConfig picks the first vendor whose standard API key variable
// (ANTHROPIC_API_KEY, OPENAI_API_KEY, ...) is set.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()
	for _, v := range vendors {
		if k := os.Getenv(v.keyEnv); k != "" {
			cfg.Provider = v.name
			v.conf(&cfg).APIKey = k
			return cfg, true
		}
	}
	return Config{}, false
}

// Selected returns the settings of the chosen vendor.
func (c Config) Selected() (ProviderConfig, bool) {
	v, ok := lookupVendor(c.Provider)
	if !ok {
		return ProviderConfig{}, false
	}
	return *v.conf(&c), true
}

// HasKey reports whether the selected provider has credentials, without
// treating a missing key as an error.
func (c Config) HasKey() bool {
	return c.Validate() == nil
}

// Validate checks that the selected provider is known and has its API key.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderMock, ProviderNone:
		return nil
	}
	pc, ok := c.Selected()
	if !ok {
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if pc.APIKey == "" {
		return fmt.Errorf("%s_%s_API_KEY is required for the %s provider", EnvPrefix, strings.ToUpper(c.Provider), c.Provider)
	}
	return nil
}
