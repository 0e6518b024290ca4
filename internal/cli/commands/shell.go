package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/chzyer/readline"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsheet/internal/cli/config"
	"github.com/leapstack-labs/leapsheet/pkg/column"
)

const shellPrompt = "leapsheet> "

// NewShellCommand creates the shell command.
func NewShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell <file>",
		Short: "Edit a file interactively, one instruction per line",
		Long: `Start an interactive session on a file. Each line is an instruction that
is applied and saved immediately, exactly as with 'leapsheet run'.

Dot-commands (.help, .columns, .preview, .history, .reload, .quit) inspect
the file and session. Changes to leapsheet.yaml are picked up before the
next instruction.`,
		Example: `  leapsheet shell sales.csv`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, args[0])
		},
	}
}

// shell holds the state of one interactive session.
type shell struct {
	cmd   *cobra.Command
	path  string
	c     *CommandContext
	close func()
	// stale is set by the config watcher and consumed by the loop.
	stale atomic.Bool
}

func newShell(cmd *cobra.Command, path string) (*shell, error) {
	c, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return nil, err
	}
	return &shell{cmd: cmd, path: path, c: c, close: cleanup}, nil
}

func runShell(cmd *cobra.Command, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to load file: %w", err)
	}

	sh, err := newShell(cmd, path)
	if err != nil {
		return err
	}
	defer func() { sh.close() }()

	// The shell outlives interrupts; each instruction gets its own.
	ctx := context.Background()
	if parent := cmd.Context(); parent != nil {
		ctx = context.WithoutCancel(parent)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfgFile := config.GetConfigFileUsed(); cfgFile != "" {
		if err := sh.watchConfig(ctx, cfgFile); err != nil {
			sh.c.Logger.Warn("config reload disabled", "file", cfgFile, "error", err)
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shellPrompt,
		HistoryFile:     sh.c.Cfg.HistoryFile,
		AutoComplete:    shellCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r := sh.c.Renderer
	r.Printf("LeapSheet shell (%s)\n", path)
	r.Println("Type an instruction, .help for commands, .quit to exit")
	r.Println("")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if sh.handleLine(ctx, line) {
			return nil
		}
	}
}

// handleLine runs one line of input and reports whether the shell should
// exit.
func (s *shell) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if s.stale.Swap(false) {
		s.reload()
	}
	if strings.HasPrefix(line, ".") {
		return s.handleDotCommand(line)
	}

	// ^C stops the running operation, not the shell.
	opCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	res := execute(opCtx, s.c, s.path, line, true)
	if err := s.c.Renderer.Result(resultView(filepath.Base(s.path), line, res)); err != nil {
		s.c.Renderer.Error(err.Error())
	}
	s.c.Renderer.Println("")
	return false
}

func (s *shell) handleDotCommand(line string) bool {
	r := s.c.Renderer
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printShellHelp(r.Writer())

	case ".columns":
		ds, err := s.c.Session.Preview(s.path)
		if err != nil {
			r.Error("Failed to load file: " + err.Error())
			return false
		}
		rows := make([][]string, 0, len(ds.Columns()))
		for i, name := range ds.Columns() {
			rows = append(rows, []string{column.Letters(i), strconv.Itoa(i + 1), name})
		}
		if err := r.Table([]string{"Letter", "Position", "Name"}, rows, ""); err != nil {
			r.Error(err.Error())
		}

	case ".preview":
		limit := 10
		if len(parts) > 1 {
			n, err := strconv.Atoi(parts[1])
			if err != nil || n < 0 {
				r.Error("Usage: .preview [rows]")
				return false
			}
			limit = n
		}
		ds, err := s.c.Session.Preview(s.path)
		if err != nil {
			r.Error("Failed to load file: " + err.Error())
			return false
		}
		if err := renderPreview(r, ds, limit); err != nil {
			r.Error(err.Error())
		}

	case ".history":
		if s.c.Store == nil {
			r.Warning("Operation history is disabled")
			return false
		}
		if err := listOperations(s.cmd, r, s.c.Store, 10); err != nil {
			r.Error(err.Error())
		}

	case ".reload":
		s.reload()

	default:
		r.Error(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
	}
	return false
}

// reload re-reads the configuration and rebuilds the session. On failure
// the previous session stays active.
func (s *shell) reload() {
	if _, err := config.LoadConfig(config.GetConfigFileUsed(), s.cmd.Root().PersistentFlags()); err != nil {
		s.c.Renderer.Error("Reload failed, keeping previous settings: " + err.Error())
		return
	}
	c, cleanup, err := NewCommandContext(s.cmd)
	if err != nil {
		s.c.Renderer.Error("Reload failed, keeping previous settings: " + err.Error())
		return
	}
	s.close()
	s.c, s.close = c, cleanup
	s.c.Renderer.Success("Configuration reloaded")
}

// watchConfig marks the session stale whenever cfgFile changes. The
// directory is watched because editors often replace the file.
func (s *shell) watchConfig(ctx context.Context, cfgFile string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(cfgFile)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch config dir: %w", err)
	}

	target := filepath.Clean(cfgFile)
	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) == target && event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					s.stale.Store(true)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.c.Logger.Debug("config watcher error", "error", err)
			}
		}
	}()
	return nil
}

func printShellHelp(w io.Writer) {
	help := `
Commands:
  .help            Show this help message
  .columns         List columns with their letter and position
  .preview [rows]  Show the first rows (default 10, 0 for all)
  .history         Show the last operations
  .reload          Re-read leapsheet.yaml and reconnect
  .quit / .exit    Exit the shell

Anything else is applied to the file as an instruction, e.g.
  fill column A with 1 to 10
  translate column B to English
  copy column 1 to column 2
`
	_, _ = fmt.Fprintln(w, help)
}

func shellCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".columns"),
		readline.PcItem(".preview"),
		readline.PcItem(".history"),
		readline.PcItem(".reload"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
		readline.PcItem("fill column"),
		readline.PcItem("translate column"),
		readline.PcItem("copy column"),
		readline.PcItem("clear column"),
	)
}
