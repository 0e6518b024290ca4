package engine

import (
	"context"
	"errors"

	"github.com/leapstack-labs/leapsheet/internal/dataset"
	"github.com/leapstack-labs/leapsheet/internal/llm"
)

// cellWrite is one value headed for the dataset.
type cellWrite struct {
	Row    int
	Column string
	Value  any
	OK     bool
}

func writesFromResults(results []llm.CellResult) []cellWrite {
	out := make([]cellWrite, len(results))
	for i, r := range results {
		out[i] = cellWrite{Row: r.Row, Column: r.Column, Value: r.Value, OK: r.Success}
	}
	return out
}

// saveOutcome is what happened when persisting after a write.
type saveOutcome struct {
	Message string
	Path    string
	Failed  bool
}

// reconciliation is the tally of a reconcile call.
type reconciliation struct {
	Succeeded int
	Failed    int
	Save      saveOutcome
}

// reconcile writes successful results, widening numeric columns that receive
// text, and saves when anything was written. A save failure is reported in
// Save but does not change the write counts.
func (e *Executor) reconcile(ctx context.Context, ds Dataset, writes []cellWrite) reconciliation {
	var rec reconciliation
	for _, w := range writes {
		if !w.OK {
			rec.Failed++
			continue
		}
		if err := writeCell(ds, w); err != nil {
			e.logger.Error("failed to write cell", "row", w.Row, "column", w.Column, "error", err)
			rec.Failed++
			continue
		}
		rec.Succeeded++
	}

	if rec.Succeeded > 0 {
		ds.MarkDirty()
		rec.Save = e.save(ctx, ds)
	}
	return rec
}

func writeCell(ds Dataset, w cellWrite) error {
	if _, isText := w.Value.(string); isText {
		kind, err := ds.Kind(w.Column)
		if err != nil {
			return err
		}
		if kind == dataset.KindNumeric {
			if err := ds.Widen(w.Column); err != nil {
				return err
			}
		}
	}
	return ds.Set(w.Row, w.Column, w.Value)
}

// save persists ds. A dataset without backing file keeps its changes in
// memory and is not treated as a failure.
func (e *Executor) save(ctx context.Context, ds Dataset) saveOutcome {
	res, err := ds.Save(ctx)
	switch {
	case err == nil:
		if res.Fallback {
			e.logger.Warn("original file locked, saved to fallback", "original", res.Original, "path", res.Path)
		}
		return saveOutcome{Message: res.Message(), Path: res.Path}
	case errors.Is(err, dataset.ErrNoBackingFile):
		return saveOutcome{Message: "Changes kept in memory (no backing file)"}
	default:
		e.logger.Error("failed to save dataset", "dataset", ds.Name(), "error", err)
		return saveOutcome{Message: "Save failed: " + err.Error(), Failed: true}
	}
}
