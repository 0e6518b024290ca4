package engine

import (
	"context"
	"strings"

	"github.com/leapstack-labs/leapsheet/internal/dataset"
	"github.com/leapstack-labs/leapsheet/pkg/column"
	"github.com/leapstack-labs/leapsheet/pkg/instruction"
)

// clear empties every cell of the target column. It never calls the model.
func (e *Executor) clear(ctx context.Context, ds Dataset, op instruction.Operation, progress ProgressFunc) Result {
	col, err := resolveExisting(ds, op.Target, "Target column", 8)
	if err != nil {
		return failure(err.Error())
	}

	progress.report("Clearing column %s...", col)
	rows := ds.Len()
	if err := ds.SetValues(col, make([]any, rows), dataset.KindEmpty); err != nil {
		return Result{Target: col, Summary: "Failed to clear column " + col + ": " + err.Error()}
	}
	ds.MarkDirty()
	saved := e.save(ctx, ds)

	s := newSummary(ds.Name(), operationLabel(op, "clear column")).
		add("Target: column %s", col).
		add("Cleared: %d rows", rows).
		addOnce(saved.Message)

	return Result{
		Success:   !saved.Failed,
		Summary:   s.String(),
		Target:    col,
		Succeeded: rows,
		SavedPath: saved.Path,
	}
}

// copy assigns the source column to every target, creating targets as
// needed. Repeating the same copy leaves the dataset unchanged.
func (e *Executor) copy(ctx context.Context, ds Dataset, op instruction.Operation, progress ProgressFunc) Result {
	source, err := resolveExisting(ds, op.Target, "Source column", 8)
	if err != nil {
		return failure(err.Error())
	}

	cols := ds.Columns()
	var targets []string
	for _, ref := range op.CopyTargets {
		name, ok := column.Resolve(ref, cols, true)
		if !ok || name == source || containsString(targets, name) {
			continue
		}
		targets = append(targets, name)
	}
	if len(targets) == 0 {
		return Result{Target: source, Summary: "No valid target columns to copy to"}
	}

	progress.report("Copying column %s...", source)
	values, kind, err := ds.Values(source)
	if err != nil {
		return Result{Target: source, Summary: "Failed to read column " + source + ": " + err.Error()}
	}
	for _, t := range targets {
		ds.EnsureColumn(t)
		if err := ds.SetValues(t, values, kind); err != nil {
			return Result{Target: source, Summary: "Failed to write column " + t + ": " + err.Error()}
		}
	}
	ds.MarkDirty()
	saved := e.save(ctx, ds)

	rows := ds.Len()
	s := newSummary(ds.Name(), operationLabel(op, "copy column")).
		add("Source: column %s", source).
		add("Target: columns %s", strings.Join(targets, ", ")).
		add("Written: %d rows x %d columns", rows, len(targets)).
		addOnce(saved.Message)

	return Result{
		Success:   !saved.Failed,
		Summary:   s.String(),
		Target:    strings.Join(targets, ","),
		Succeeded: rows * len(targets),
		SavedPath: saved.Path,
	}
}

func operationLabel(op instruction.Operation, fallback string) string {
	if d := strings.TrimSpace(op.Directive); d != "" {
		return d
	}
	return fallback
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
