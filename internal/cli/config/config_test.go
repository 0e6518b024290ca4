package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate moves into an empty directory and clears the API key fallback.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(APIKeyFallbackEnv, "")
	t.Cleanup(ResetConfig)
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "leapsheet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("model", "", "")
	fs.String("state", "", "")
	fs.String("output", "", "")
	fs.Bool("verbose", false, "")
	fs.Duration("timeout", 0, "")
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.3, cfg.Temperature, 1e-9)
	assert.Equal(t, 500, cfg.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 4, cfg.MaxRetries)
	assert.Equal(t, 120*time.Second, cfg.Cooldown)
	assert.Equal(t, 100*time.Millisecond, cfg.BatchDelay)
	assert.True(t, cfg.History)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.Equal(t, filepath.Join(dir, ".leapsheet", "state.db"), cfg.StatePath)
	assert.Empty(t, GetConfigFileUsed())
	assert.False(t, cfg.AIConfigured())
	assert.Equal(t, []string{"api_key", "base_url", "model"}, cfg.MissingAIKeys())
}

func TestLoadConfig_FileFoundUpward(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, `
api_key: sk-file-0123456789
base_url: https://llm.example.com/v1
model: qwen-plus
vision_models: [qwen-vl-max, qwen-vl-plus]
timeout: 30s
state_path: data/history.db
parser:
  clear_keywords: [wipe]
`)
	sub := filepath.Join(dir, "sheets", "2024")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	t.Chdir(sub)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "leapsheet.yaml"), GetConfigFileUsed())
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, "qwen-plus", cfg.Model)
	assert.Equal(t, []string{"qwen-vl-max", "qwen-vl-plus"}, cfg.VisionModels)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, filepath.Join(dir, "data", "history.db"), cfg.StatePath)
	assert.True(t, cfg.AIConfigured())
	assert.Contains(t, cfg.Parser.Vocabulary().ClearKeywords, "wipe")
	assert.Contains(t, cfg.Parser.Vocabulary().ClearKeywords, "clear")
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "model: from-file\nmax_tokens: 100\noutput: text\n")
	t.Setenv("LEAPSHEET_MODEL", "from-env")
	t.Setenv("LEAPSHEET_MAX_TOKENS", "800")
	t.Setenv("LEAPSHEET_VISION_MODELS", "a,b")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--model", "from-flag", "--timeout", "5s", "--state", ":memory:"}))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.Model)
	assert.Equal(t, 800, cfg.MaxTokens)
	assert.Equal(t, "text", cfg.OutputFormat)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, ":memory:", cfg.StatePath)
	assert.Equal(t, []string{"a", "b"}, cfg.VisionModels)
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_ParserFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("LEAPSHEET_PARSER_WRITE_VERBS", "put,insert")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"put", "insert"}, cfg.Parser.WriteVerbs)
}

func TestLoadConfig_APIKeyFallback(t *testing.T) {
	isolate(t)
	t.Setenv(APIKeyFallbackEnv, "sk-fallback-123456")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "sk-fallback-123456", cfg.APIKey)

	t.Setenv("LEAPSHEET_API_KEY", "sk-primary-123456")
	cfg, err = LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "sk-primary-123456", cfg.APIKey)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := LoadConfig("nope.yaml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "temperature: 3\noutput: html\nmax_retries: -2\n")

	_, err := LoadConfig(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temperature must be between 0 and 2")
	assert.Contains(t, err.Error(), "output must be one of")
	assert.Contains(t, err.Error(), "max_retries must not be negative")
}

func TestEffective_RedactsKey(t *testing.T) {
	isolate(t)
	t.Setenv("LEAPSHEET_API_KEY", "sk-abcdefghijklmnop")

	_, err := LoadConfig("", nil)
	require.NoError(t, err)

	eff := Effective()
	assert.Equal(t, "sk-****mnop", eff["api_key"])
	assert.Equal(t, "auto", eff["output"])
}

func TestRedact(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"short", "****"},
		{"sk-1234567890", "sk-****7890"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Redact(tt.in), tt.in)
	}
}
