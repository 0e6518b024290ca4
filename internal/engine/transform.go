package engine

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapsheet/internal/dataset"
	"github.com/leapstack-labs/leapsheet/internal/llm"
	"github.com/leapstack-labs/leapsheet/pkg/instruction"
)

// transform sends every non-empty cell of the target column through the
// model, one call per cell, and writes the replies back.
func (e *Executor) transform(ctx context.Context, ds Dataset, op instruction.Operation, progress ProgressFunc) Result {
	col, err := resolveExisting(ds, op.Target, "Column", 5)
	if err != nil {
		return failure(err.Error())
	}

	model, err := e.requireModel()
	if err != nil {
		return Result{Target: col, Summary: notConfiguredSummary(err)}
	}

	progress.report("Reading column %s...", col)
	cells, err := ds.Cells(col)
	if err != nil {
		return Result{Target: col, Summary: "Failed to read column " + col + ": " + err.Error()}
	}
	if len(cells) == 0 {
		return Result{Target: col, Summary: fmt.Sprintf("Column %s is empty or has no usable data", col)}
	}

	tasks := make([]llm.CellTask, len(cells))
	for i, c := range cells {
		tasks[i] = llm.CellTask{Row: c.Row, Column: col, Content: dataset.FormatValue(c.Value)}
	}

	progress.report("Processing %d cells...", len(tasks))
	results := model.CallBatch(ctx, tasks, e.systemPrompt, op.Directive, llm.Params{
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	}, func(done, total int) {
		progress.report("Processing %d/%d...", done, total)
	})

	progress.report("Saving results...")
	rec := e.reconcile(ctx, ds, writesFromResults(results))
	return e.writeResult(ds, op, col, rec, hintTransformExhausted)
}
