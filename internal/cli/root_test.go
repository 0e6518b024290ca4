package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsheet/internal/cli/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(config.APIKeyFallbackEnv, "")
	t.Cleanup(config.ResetConfig)
	return dir
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "parse", "preview", "shell", "history", "ping", "vision", "doctor", "config", "init", "version", "completion"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
	for _, flag := range []string{"config", "model", "base-url", "state", "history", "timeout", "max-retries", "log-file", "verbose", "output"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing flag --%s", flag)
	}
}

func TestRootCommand_FlagsReachConfig(t *testing.T) {
	isolate(t)

	_, err := runRoot(t, "parse", "clear column A", "--model", "m-flag", "--timeout", "5s", "-o", "json", "--history=false")
	require.NoError(t, err)

	cfg := config.GetCurrentConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "m-flag", cfg.Model)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "5s", cfg.Timeout.String())
	assert.False(t, cfg.History)
}

func TestRootCommand_RunRecordsHistory(t *testing.T) {
	dir := isolate(t)
	sheet := filepath.Join(dir, "list.csv")
	require.NoError(t, os.WriteFile(sheet, []byte("City\nParis\nRome\n"), 0o600))

	out, err := runRoot(t, "run", sheet, "copy column 1 to column 2", "-o", "json")
	require.NoError(t, err, out)

	var res struct {
		Success   bool   `json:"success"`
		SavedPath string `json:"saved_path"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.Equal(t, sheet, res.SavedPath)

	out, err = runRoot(t, "history", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "copy column 1 to column 2")
	assert.FileExists(t, filepath.Join(dir, ".leapsheet", "state.db"))
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	isolate(t)
	_, err := runRoot(t, "parse", "clear column A", "--output", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "leapsheet.log")
	logger, err := newLogger(&config.Config{LogFile: path}, new(bytes.Buffer))
	require.NoError(t, err)
	t.Cleanup(closeLog)

	logger.Debug("hello", "n", 1)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestNewLogger_VerboseStderr(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&config.Config{}, &buf)
	require.NoError(t, err)
	logger.Info("quiet")
	assert.Empty(t, buf.String())

	logger, err = newLogger(&config.Config{Verbose: true}, &buf)
	require.NoError(t, err)
	logger.Debug("loud")
	assert.Contains(t, buf.String(), "loud")
}
