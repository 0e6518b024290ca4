package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsheet/internal/cli/output"
	"github.com/leapstack-labs/leapsheet/internal/cli/progress"
	"github.com/leapstack-labs/leapsheet/internal/engine"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Quiet bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <file> <instruction...>",
		Short: "Apply a natural-language instruction to a spreadsheet file",
		Long: `Parse the instruction, apply it to the file and save the result.

Supported operations:
  - Generate: fill a column with a number range, weekdays, months, a list
    of values, or (with a model configured) free-form AI generation
  - Transform: send every non-empty cell of a column through the model
  - Copy: copy one column to one or more other columns
  - Clear: empty a column

If the file is locked by another program, the result is written next to it
as <name>_saved_<timestamp><ext>.`,
		Example: `  # Fill a column with a sequence
  leapsheet run sales.csv "fill column A with 1 to 36"

  # Translate a column (needs api_key, base_url and model)
  leapsheet run sales.csv "translate column B to Chinese"

  # Copy and clear
  leapsheet run sales.csv "copy column 1 to column 2, 3"
  leapsheet run sales.csv "clear column C"

  # Machine-readable result
  leapsheet run sales.csv "把A列翻译成英文" -o json`,
		Aliases: []string{"do"},
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], strings.Join(args[1:], " "), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Do not show progress")

	return cmd
}

func runRun(cmd *cobra.Command, path, text string, opts *RunOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer
	res := execute(cmd.Context(), cmdCtx, path, text, !opts.Quiet)
	if err := r.Result(resultView(filepath.Base(path), text, res)); err != nil {
		return err
	}
	if !res.Success {
		return ErrOperationFailed
	}
	return nil
}

// execute runs one instruction with progress feedback on stderr.
func execute(ctx context.Context, c *CommandContext, path, text string, showProgress bool) engine.Result {
	if ctx == nil {
		ctx = context.Background()
	}
	r := c.Renderer
	opts := progress.Options{
		Interactive: r.IsTTY() && r.EffectiveMode() == output.ModeText,
		Title:       fmt.Sprintf("Running %q...", text),
	}
	if showProgress && r.EffectiveMode() != output.ModeJSON {
		opts.Out = r.ErrWriter()
	}

	var res engine.Result
	err := progress.Run(ctx, opts, func(ctx context.Context, update progress.UpdateFunc) {
		res = c.Session.Run(ctx, path, text, engine.ProgressFunc(update))
	})
	if err != nil {
		c.Logger.Debug("progress display ended", "error", err)
	}
	return res
}
