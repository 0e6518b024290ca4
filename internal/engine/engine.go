// Package engine executes parsed instructions against a loaded dataset.
// It resolves column references, selects one of the execution strategies
// (clear, copy, local generate, AI generate, AI transform), writes results
// back and produces a human-readable summary.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapsheet/internal/dataset"
	"github.com/leapstack-labs/leapsheet/internal/llm"
	"github.com/leapstack-labs/leapsheet/pkg/instruction"
)

// Default prompts used when the configuration does not override them.
const (
	DefaultSystemPrompt = "You are a spreadsheet data assistant. Transform the cell content " +
		"as the user instructs. Output only the result, with no explanation or extra text."
	generateSystemPrompt = "You are a spreadsheet data generator. Produce exactly the number " +
		"of values requested, each ready to be written into a single cell."
)

// Dataset is the narrow view of a table the executor needs.
// *dataset.Frame implements it.
type Dataset interface {
	Name() string
	Columns() []string
	Len() int
	Cells(col string) ([]dataset.Cell, error)
	Values(col string) ([]any, dataset.Kind, error)
	SetValues(col string, values []any, kind dataset.Kind) error
	Kind(col string) (dataset.Kind, error)
	Set(row int, col string, v any) error
	Widen(col string) error
	EnsureColumn(name string) bool
	AppendRows(n int)
	MarkDirty()
	Save(ctx context.Context) (dataset.SaveResult, error)
}

// Model is the remote language model as seen by the executor.
// *llm.Client implements it.
type Model interface {
	GenerateText(ctx context.Context, system, user string, p llm.Params) (string, error)
	CallBatch(ctx context.Context, cells []llm.CellTask, system, directive string, p llm.Params, progress func(done, total int)) []llm.CellResult
}

var (
	_ Dataset = (*dataset.Frame)(nil)
	_ Model   = (*llm.Client)(nil)
)

// Config holds executor configuration.
type Config struct {
	// Model performs AI operations. Nil disables transform and AI generate.
	Model Model
	// ModelErr explains why Model is nil; reported to the user.
	ModelErr error
	// SystemPrompt is sent with every transform cell.
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Executor runs operations. It holds no per-dataset state; each Execute call
// assumes exclusive access to the dataset it is given.
type Executor struct {
	model        Model
	modelErr     error
	systemPrompt string
	temperature  float32
	maxTokens    int
	logger       *slog.Logger
}

// New creates an executor.
func New(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	prompt := strings.TrimSpace(cfg.SystemPrompt)
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}
	return &Executor{
		model:        cfg.Model,
		modelErr:     cfg.ModelErr,
		systemPrompt: prompt,
		temperature:  cfg.Temperature,
		maxTokens:    maxTokens,
		logger:       logger,
	}
}

// Result is the outcome of one operation. Summary is always set and is
// meant to be shown to the user as is.
type Result struct {
	Success   bool
	Summary   string
	Kind      instruction.Kind
	Target    string
	Succeeded int
	Failed    int
	SavedPath string
}

// ProgressFunc receives human-readable status updates.
type ProgressFunc func(status string)

func (p ProgressFunc) report(format string, args ...any) {
	if p != nil {
		p(fmt.Sprintf(format, args...))
	}
}

// Execute runs op against ds. It never returns an error: every failure is
// folded into a Result with Success false and an explanatory Summary.
func (e *Executor) Execute(ctx context.Context, ds Dataset, op instruction.Operation, progress ProgressFunc) Result {
	e.logger.Debug("executing operation", "kind", op.Kind, "target", fmt.Sprint(op.Target), "dataset", ds.Name())

	var res Result
	switch op.Kind {
	case instruction.KindClear:
		res = e.clear(ctx, ds, op, progress)
	case instruction.KindCopy:
		res = e.copy(ctx, ds, op, progress)
	case instruction.KindGenerate:
		res = e.generate(ctx, ds, op, progress)
	case instruction.KindTransform:
		res = e.transform(ctx, ds, op, progress)
	default:
		res = failure(fmt.Sprintf("unknown operation kind %q", op.Kind))
	}
	res.Kind = op.Kind

	if res.Success {
		e.logger.Info("operation completed", "kind", op.Kind, "target", res.Target, "succeeded", res.Succeeded, "failed", res.Failed)
	} else {
		e.logger.Warn("operation failed", "kind", op.Kind, "target", res.Target, "succeeded", res.Succeeded, "failed", res.Failed)
	}
	return res
}

func failure(summary string) Result {
	return Result{Summary: summary}
}

// requireModel returns the model or a user-facing explanation of why AI
// operations are unavailable.
func (e *Executor) requireModel() (Model, error) {
	if e.model != nil {
		return e.model, nil
	}
	if e.modelErr != nil {
		return nil, e.modelErr
	}
	return nil, llm.ErrNotConfigured
}

func notConfiguredSummary(err error) string {
	msg := "AI is not available: " + err.Error()
	if errors.Is(err, llm.ErrNotConfigured) {
		msg += "\nHint: set api_key, base_url and model in leapsheet.yaml or LEAPSHEET_* environment variables. " +
			"Clear, copy and list generation work without them."
	}
	return msg
}
