package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lessonloop/internal/detect"
	"github.com/abhisek/lessonloop/internal/judge"
	"github.com/abhisek/lessonloop/internal/preference"
)

// unsetEnv clears keys for the test and restores them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

var envKeys = []string{
	"LESSONLOOP_PREFERENCE_BACKEND", "LESSONLOOP_REDIS_ADDR", "LESSONLOOP_LOG_LEVEL",
	"LESSONLOOP_DB", "LESSONLOOP_PIPELINE_FILE",
}

func TestLoadEnvDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	unsetEnv(t, envKeys...)

	env, err := LoadEnv("")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, env.PreferenceBackend)
	assert.Equal(t, "localhost:6379", env.Redis.Addr)
	assert.Equal(t, "info", env.Log.Level)
}

func TestLoadEnvFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"LESSONLOOP_PREFERENCE_BACKEND=redis\n"+
			"LESSONLOOP_REDIS_ADDR=cache:6380\n"+
			"LESSONLOOP_LOG_LEVEL=debug\n"+
			"LESSONLOOP_DB=/tmp/lessons.db\n",
	), 0o600))
	unsetEnv(t, envKeys...)

	env, err := LoadEnv(path)
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, env.PreferenceBackend)
	assert.Equal(t, "cache:6380", env.Redis.Addr)
	assert.Equal(t, "debug", env.Log.Level)
	assert.Equal(t, "/tmp/lessons.db", env.DB)
}

func TestLoadEnvMissingFile(t *testing.T) {
	_, err := LoadEnv(filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}

func TestLoadEnvRejectsUnknownBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LESSONLOOP_PREFERENCE_BACKEND", "etcd")
	_, err := LoadEnv("")
	assert.ErrorContains(t, err, "unknown preference backend")
}

func TestLLMConfigNone(t *testing.T) {
	t.Setenv("LESSONLOOP_LLM_PROVIDER", "none")
	_, ok, err := LLMConfig()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLLMConfigDiscovers(t *testing.T) {
	unsetEnv(t, "LESSONLOOP_LLM_PROVIDER", "LESSONLOOP_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LESSONLOOP_LLM_TIMEOUT", "5s")

	cfg, ok, err := LLMConfig()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestDefaultTuningIsValid(t *testing.T) {
	tu := DefaultTuning()
	require.NoError(t, tu.Validate())

	pc := tu.Pipeline()
	assert.Equal(t, 3, pc.MaxAttempts)
	assert.Equal(t, 70, pc.PassThreshold)
	assert.Equal(t, 60*time.Second, pc.WorkerTimeout)
	assert.Len(t, pc.Workers, 3)
}

func TestLoadTuningEmptyPath(t *testing.T) {
	tu, err := LoadTuning("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), tu)
}

func TestParseTuning(t *testing.T) {
	tu, err := ParseTuning([]byte(`
max_attempts: 5
pass_threshold: 80
worker_timeout: 15s
history_cap: 50
rubric:
  - name: Accuracy
    weight: 60
  - name: Clarity
    weight: 40
workers:
  text: text-worker
  video: fancy-video-worker
detection:
  policy: table
  table:
    text: video
  min_llm_confidence: 75
llm:
  content:
    max_tokens: 2000
    temperature: 0.7
  judge:
    max_tokens: 400
    temperature: 0
  detector:
    max_tokens: 200
    temperature: 0
`))
	require.NoError(t, err)

	pc := tu.Pipeline()
	assert.Equal(t, 5, pc.MaxAttempts)
	assert.Equal(t, 80, pc.PassThreshold)
	assert.Equal(t, 15*time.Second, pc.WorkerTimeout)
	assert.Equal(t, "fancy-video-worker", pc.Workers[preference.FormatVideo])
	assert.NotContains(t, pc.Workers, preference.FormatFlashcards)
	assert.Len(t, pc.Rubric, 2)

	jc := tu.Judge()
	assert.Equal(t, 80, jc.PassThreshold)
	assert.Equal(t, 400, jc.MaxTokens)
	assert.Equal(t, judge.Rubric{{Name: "Accuracy", Weight: 60}, {Name: "Clarity", Weight: 40}}, jc.Rubric)

	dc := tu.Detector()
	assert.Equal(t, 75, dc.MinLLMConfidence)
	policy, ok := dc.Policy.(detect.TablePolicy)
	require.True(t, ok)
	assert.Equal(t, preference.FormatVideo, policy.Next[preference.FormatText])

	assert.Equal(t, 2000, tu.Content().MaxTokens)
	assert.Equal(t, 50, tu.HistoryCap)
}

func TestParseTuningPartialKeepsDefaults(t *testing.T) {
	tu, err := ParseTuning([]byte("max_attempts: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, tu.MaxAttempts)
	assert.Equal(t, judge.DefaultRubric(), tu.Rubric)
	assert.Len(t, tu.Workers, 3)
	assert.Equal(t, DefaultTuning().LLM, tu.LLM)
}

func TestParseTuningEmptyDocument(t *testing.T) {
	tu, err := ParseTuning(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), tu)
}

func TestParseTuningErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key":    "max_attemps: 3\n",
		"rubric sum":     "rubric:\n  - name: A\n    weight: 50\n",
		"threshold":      "pass_threshold: 120\n",
		"attempts":       "max_attempts: 0\n",
		"policy":         "detection:\n  policy: random\n",
		"format":         "workers:\n  podcast: p\n  text: t\n",
		"precedence":     "detection:\n  precedence: [text, audio]\n",
		"no text worker": "workers:\n  video: v\n",
		"budget":         "llm:\n  judge:\n    max_tokens: 0\n",
		"bad yaml":       "max_attempts: [\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTuning([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadTuningFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keep_artifacts: 10\n"), 0o600))

	tu, err := LoadTuning(path)
	require.NoError(t, err)
	assert.Equal(t, 10, tu.KeepArtifacts)

	_, err = LoadTuning(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
