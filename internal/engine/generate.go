package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapsheet/internal/llm"
	"github.com/leapstack-labs/leapsheet/pkg/column"
	"github.com/leapstack-labs/leapsheet/pkg/instruction"
)

// ErrUnusableResult means a model reply could not be turned into cell values.
var ErrUnusableResult = errors.New("AI result not usable for writing")

const maxGenerateTokens = 2000

var (
	fenceOpenRe  = regexp.MustCompile("^```[a-zA-Z]*\\n?")
	fenceCloseRe = regexp.MustCompile("\\n?```$")
	valueSplitRe = regexp.MustCompile(`[,，;；]`)
)

// generate fills the target column from a GenerateSpec. Number sequences and
// literal lists are written locally; freeform prompts go to the model.
func (e *Executor) generate(ctx context.Context, ds Dataset, op instruction.Operation, progress ProgressFunc) Result {
	col, ok := column.Resolve(op.Target, ds.Columns(), true)
	if !ok {
		return failure((&ResolutionError{Ref: op.Target, Role: "Target column", Available: ds.Columns(), Limit: 5}).Error())
	}

	spec := op.Generate
	if spec == nil {
		spec = instruction.ClassifyGenerate(op.Directive)
	}

	var values []any
	switch s := spec.(type) {
	case instruction.NumberSequence:
		if s.Len() < 0 {
			return Result{Target: col, Summary: "Nothing generated: " + instruction.MsgSequenceLong}
		}
		for _, v := range s.Values() {
			values = append(values, v)
		}
	case instruction.EnumeratedList:
		for _, v := range s.Values {
			values = append(values, v)
		}
	case instruction.AIFreeform:
		return e.generateWithModel(ctx, ds, op, col, s.Prompt, progress)
	default:
		return Result{Target: col, Summary: fmt.Sprintf("unsupported generate spec %T", spec)}
	}

	if len(values) == 0 {
		return Result{Target: col, Summary: "Nothing to generate: " + instruction.DescribeGenerate(spec) + " is empty"}
	}
	progress.report("Generating %d values...", len(values))
	return e.writeColumn(ctx, ds, op, col, values, hintGenerateNothing)
}

func (e *Executor) generateWithModel(ctx context.Context, ds Dataset, op instruction.Operation, col, prompt string, progress ProgressFunc) Result {
	model, err := e.requireModel()
	if err != nil {
		return Result{Target: col, Summary: notConfiguredSummary(err)}
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Result{Target: col, Summary: "Generation prompt is empty"}
	}

	n := max(ds.Len(), 1)
	progress.report("Asking the model for %d values...", n)

	text, err := model.GenerateText(ctx, generateSystemPrompt, generatePrompt(prompt, n), llm.Params{
		Temperature: e.temperature,
		MaxTokens:   max(e.maxTokens, min(maxGenerateTokens, n*32)),
	})
	if err != nil {
		s := newSummary(ds.Name(), operationLabel(op, prompt)).
			add("Target: column %s", col).
			add("Succeeded: 0 rows").
			add("AI generation failed: %v", err).
			add(hintAIGenerateNothing)
		return Result{Target: col, Summary: s.String()}
	}

	raw := ParseGeneratedValues(text)
	if len(raw) == 0 {
		e.logger.Warn("model reply not usable", "reply", text)
		s := newSummary(ds.Name(), operationLabel(op, prompt)).
			add("Target: column %s", col).
			add("Succeeded: 0 rows").
			add("%s", ErrUnusableResult.Error()).
			add(hintAIGenerateNothing)
		return Result{Target: col, Summary: s.String()}
	}
	normalized := NormalizeValues(raw, n)
	values := make([]any, len(normalized))
	for i, v := range normalized {
		values[i] = v
	}

	progress.report("Writing %d values...", len(values))
	return e.writeColumn(ctx, ds, op, col, values, hintAIGenerateNothing)
}

func generatePrompt(requirement string, n int) string {
	return fmt.Sprintf("Generate %d values.\n"+
		"Requirement: %s\n"+
		"Output rules:\n"+
		"1. Output only the data, with no explanation\n"+
		"2. Prefer a JSON array, e.g. [\"value 1\",\"value 2\"]\n"+
		"3. Produce exactly %d items", n, requirement, n)
}

// writeColumn writes values to rows 0..len(values)-1 of col, creating the
// column and appending rows as needed.
func (e *Executor) writeColumn(ctx context.Context, ds Dataset, op instruction.Operation, col string, values []any, hint string) Result {
	ds.EnsureColumn(col)
	if extra := len(values) - ds.Len(); extra > 0 {
		ds.AppendRows(extra)
	}

	writes := make([]cellWrite, len(values))
	for i, v := range values {
		writes[i] = cellWrite{Row: i, Column: col, Value: v, OK: true}
	}
	rec := e.reconcile(ctx, ds, writes)
	return e.writeResult(ds, op, col, rec, hint)
}

func (e *Executor) writeResult(ds Dataset, op instruction.Operation, col string, rec reconciliation, hint string) Result {
	s := writeSummary(ds.Name(), operationLabel(op, "generate"), col, rec)
	res := Result{
		Target:    col,
		Succeeded: rec.Succeeded,
		Failed:    rec.Failed,
		SavedPath: rec.Save.Path,
	}
	if rec.Succeeded == 0 {
		s.add("%s", hint)
		res.Summary = s.String()
		return res
	}
	res.Success = !rec.Save.Failed
	res.Summary = s.String()
	return res
}

// ParseGeneratedValues extracts values from a model reply. Code fences are
// removed, then the text is read as a JSON array, else one value per line
// when there are several lines, else split on commas and semicolons.
func ParseGeneratedValues(reply string) []string {
	cleaned := strings.TrimSpace(reply)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = fenceOpenRe.ReplaceAllString(cleaned, "")
		cleaned = strings.TrimSpace(fenceCloseRe.ReplaceAllString(cleaned, ""))
	}

	if values := jsonValues(cleaned); len(values) > 0 {
		return values
	}

	var lines []string
	for _, line := range strings.Split(cleaned, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > 1 {
		return lines
	}

	var values []string
	for _, item := range valueSplitRe.Split(cleaned, -1) {
		if item = strings.TrimSpace(item); item != "" {
			values = append(values, item)
		}
	}
	return values
}

func jsonValues(s string) []string {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		var v string
		switch x := item.(type) {
		case nil:
			continue
		case string:
			v = x
		default:
			v = fmt.Sprint(x)
		}
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// NormalizeValues returns exactly n values: a single value is repeated, a
// short list is padded with its last value, a long list is truncated.
func NormalizeValues(values []string, n int) []string {
	if n <= 0 || len(values) == 0 {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		if i < len(values) {
			out[i] = values[i]
		} else {
			out[i] = values[len(values)-1]
		}
	}
	return out
}
