package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsheet/internal/cli/output"
	"github.com/leapstack-labs/leapsheet/internal/state"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "List recorded operations, or show one in full",
		Example: `  leapsheet history
  leapsheet history --limit 50 -o json
  leapsheet history 3f2b9c1e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContextWithoutSession(cmd)
			store, err := state.OpenStore(cmdCtx.Cfg.StatePath, cmdCtx.Logger)
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer func() { _ = store.Close() }()

			if len(args) == 1 {
				return showOperation(cmd, cmdCtx.Renderer, store, args[0])
			}
			return listOperations(cmd, cmdCtx.Renderer, store, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of operations to list (0 for all)")

	return cmd
}

// HistoryEntry is the JSON output for one recorded operation.
type HistoryEntry struct {
	ID          string    `json:"id"`
	File        string    `json:"file"`
	Instruction string    `json:"instruction"`
	Kind        string    `json:"kind"`
	Target      string    `json:"target"`
	Success     bool      `json:"success"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	SavedPath   string    `json:"saved_path,omitempty"`
	Summary     string    `json:"summary"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
}

func historyEntry(rec *state.OperationRecord) HistoryEntry {
	return HistoryEntry{
		ID:          rec.ID,
		File:        rec.File,
		Instruction: rec.Instruction,
		Kind:        rec.Kind,
		Target:      rec.Target,
		Success:     rec.Success,
		Succeeded:   rec.Succeeded,
		Failed:      rec.Failed,
		SavedPath:   rec.SavedPath,
		Summary:     rec.Summary,
		StartedAt:   rec.StartedAt,
		DurationMS:  rec.Duration().Milliseconds(),
	}
}

func listOperations(cmd *cobra.Command, r *output.Renderer, store state.Store, limit int) error {
	recs, err := store.ListOperations(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		entries := make([]HistoryEntry, 0, len(recs))
		for _, rec := range recs {
			entries = append(entries, historyEntry(rec))
		}
		return r.JSON(entries)
	}

	if len(recs) == 0 {
		r.Muted("No operations recorded yet")
		return nil
	}

	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		status := "ok"
		if !rec.Success {
			status = "failed"
		}
		rows = append(rows, []string{
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			rec.File,
			output.Truncate(rec.Instruction, 40),
			rec.Kind,
			status,
			fmt.Sprintf("%d/%d", rec.Succeeded, rec.Succeeded+rec.Failed),
			shortID(rec.ID),
		})
	}
	return r.Table(
		[]string{"Time", "File", "Instruction", "Kind", "Status", "Rows", "ID"},
		rows,
		fmt.Sprintf("(%s)", output.Plural(len(recs), "operation")),
	)
}

func showOperation(cmd *cobra.Command, r *output.Renderer, store state.Store, id string) error {
	rec, err := store.GetOperation(cmd.Context(), id)
	if errors.Is(err, state.ErrNotFound) {
		rec, err = findByPrefix(cmd, store, id)
	}
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(historyEntry(rec))
	}
	r.Header(2, rec.Instruction)
	r.KeyValue("ID", rec.ID)
	r.KeyValue("File", rec.File)
	r.KeyValue("Started", rec.StartedAt.Local().Format(time.RFC3339))
	r.KeyValue("Duration", rec.Duration().Round(time.Millisecond).String())
	r.Println("")
	r.Println(rec.Summary)
	return nil
}

// findByPrefix resolves the short IDs printed by the list view.
func findByPrefix(cmd *cobra.Command, store state.Store, prefix string) (*state.OperationRecord, error) {
	recs, err := store.ListOperations(cmd.Context(), 0)
	if err != nil {
		return nil, err
	}
	var match *state.OperationRecord
	for _, rec := range recs {
		if strings.HasPrefix(rec.ID, prefix) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous operation id %q", prefix)
			}
			match = rec
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", state.ErrNotFound, prefix)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
