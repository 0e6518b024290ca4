package commands

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsheet/internal/cli/config"
	"github.com/leapstack-labs/leapsheet/internal/cli/output"
	"github.com/leapstack-labs/leapsheet/internal/engine"
	"github.com/leapstack-labs/leapsheet/internal/llm"
	"github.com/leapstack-labs/leapsheet/internal/state"
	"github.com/leapstack-labs/leapsheet/pkg/instruction"
)

// ErrOperationFailed is returned when an instruction ran but did not
// succeed, so the process exits non-zero. The summary is already printed.
var ErrOperationFailed = errors.New("operation failed")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	// Client is nil when the model connection is not configured; ClientErr
	// then says why.
	Client    *llm.Client
	ClientErr error
	Store     state.Store
	Session   *engine.Session
}

// NewCommandContext creates a CommandContext with model client, history
// store and session. Returns the context and a cleanup function that must
// be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutSession(cmd)
	cfg := cmdCtx.Cfg

	cmdCtx.Client, cmdCtx.ClientErr = newClient(cfg, cmdCtx.Logger)

	cleanup := func() {}
	if cfg.History {
		store, err := state.OpenStore(cfg.StatePath, cmdCtx.Logger)
		if err != nil {
			// History is best effort; the edit itself must still run.
			cmdCtx.Logger.Warn("operation history disabled", "path", cfg.StatePath, "error", err)
		} else {
			cmdCtx.Store = store
			cleanup = func() { _ = store.Close() }
		}
	}

	cmdCtx.Session = newSession(cmdCtx)
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutSession creates a CommandContext with config,
// logger and renderer only.
func NewCommandContextWithoutSession(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the current configuration, or defaults when none was
// loaded (commands created outside the root command in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		Temperature:  config.DefaultTemperature,
		MaxTokens:    config.DefaultMaxTokens,
		Timeout:      config.DefaultTimeout,
		MaxRetries:   config.DefaultMaxRetries,
		Cooldown:     config.DefaultCooldown,
		BatchDelay:   config.DefaultBatchDelay,
		StatePath:    config.DefaultStateFile,
		HistoryFile:  config.DefaultHistoryFile,
		OutputFormat: config.DefaultOutput,
	}
}

func newClient(cfg *config.Config, logger *slog.Logger) (*llm.Client, error) {
	llmCfg := cfg.LLMConfig()
	llmCfg.Logger = logger
	return llm.New(llmCfg)
}

func newSession(c *CommandContext) *engine.Session {
	execCfg := engine.Config{
		SystemPrompt: c.Cfg.SystemPrompt,
		Temperature:  float32(c.Cfg.Temperature),
		MaxTokens:    c.Cfg.MaxTokens,
		Logger:       c.Logger,
	}
	// A nil *llm.Client must not be stored in the Model interface.
	if c.Client != nil {
		execCfg.Model = c.Client
	} else {
		execCfg.ModelErr = c.ClientErr
	}

	sessCfg := engine.SessionConfig{
		Executor: engine.New(execCfg),
		Parser:   instruction.NewParser(c.Cfg.Parser.Vocabulary()),
		Logger:   c.Logger,
	}
	if c.Store != nil {
		sessCfg.History = c.Store
	}
	return engine.NewSession(sessCfg)
}

// resultView converts an engine result for rendering.
func resultView(file, text string, res engine.Result) output.Result {
	return output.Result{
		File:        file,
		Instruction: text,
		Success:     res.Success,
		Kind:        string(res.Kind),
		Target:      res.Target,
		Succeeded:   res.Succeeded,
		Failed:      res.Failed,
		SavedPath:   res.SavedPath,
		Summary:     res.Summary,
	}
}
