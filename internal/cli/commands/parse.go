package commands

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsheet/internal/cli/output"
	"github.com/leapstack-labs/leapsheet/pkg/instruction"
)

// ParseOutput is the JSON output for the parse command.
type ParseOutput struct {
	Input       string   `json:"input"`
	Valid       bool     `json:"valid"`
	Error       string   `json:"error,omitempty"`
	Kind        string   `json:"kind,omitempty"`
	Target      string   `json:"target,omitempty"`
	CopyTargets []string `json:"copy_targets,omitempty"`
	Directive   string   `json:"directive,omitempty"`
	Generate    string   `json:"generate,omitempty"`
	Values      []string `json:"values,omitempty"`
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <instruction...>",
		Short: "Show how an instruction is understood, without touching any file",
		Example: `  leapsheet parse "fill column A with Monday to Sunday"
  leapsheet parse "copy column 1 to columns 2 and 3" -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, strings.Join(args, " "))
		},
	}
}

func runParse(cmd *cobra.Command, text string) error {
	cmdCtx := NewCommandContextWithoutSession(cmd)
	r := cmdCtx.Renderer
	parser := instruction.NewParser(cmdCtx.Cfg.Parser.Vocabulary())

	out := describeParse(parser, text)
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(out); err != nil {
			return err
		}
	default:
		if !out.Valid {
			r.Error(out.Error)
			break
		}
		r.Header(2, "Parsed instruction")
		r.KeyValue("Kind", out.Kind)
		r.KeyValue("Target", out.Target)
		if len(out.CopyTargets) > 0 {
			r.KeyValue("Copy to", strings.Join(out.CopyTargets, ", "))
		}
		if out.Generate != "" {
			r.KeyValue("Generate", out.Generate)
		}
		if len(out.Values) > 0 {
			r.KeyValue("Values", output.Truncate(strings.Join(out.Values, ", "), 80))
		}
		if out.Directive != "" {
			r.KeyValue("Directive", out.Directive)
		}
	}
	if !out.Valid {
		return ErrOperationFailed
	}
	return nil
}

func describeParse(parser *instruction.Parser, text string) ParseOutput {
	out := ParseOutput{Input: text}
	op, err := parser.Parse(text)
	if err != nil {
		var pe *instruction.ParseError
		if errors.As(err, &pe) {
			out.Error = pe.Message
		} else {
			out.Error = err.Error()
		}
		return out
	}

	out.Valid = true
	out.Kind = string(op.Kind)
	out.Target = describeColumnRef(op.Target)
	for _, ref := range op.CopyTargets {
		out.CopyTargets = append(out.CopyTargets, describeColumnRef(ref))
	}
	out.Directive = op.Directive
	if op.Generate != nil {
		out.Generate = instruction.DescribeGenerate(op.Generate)
		switch g := op.Generate.(type) {
		case instruction.EnumeratedList:
			out.Values = g.Values
		case instruction.NumberSequence:
			if n := g.Len(); n > 0 {
				out.Values = []string{output.Plural(n, "value")}
			}
		}
	}
	return out
}

// describeColumnRef renders an ordinal as "column 2" and a name as is.
func describeColumnRef(ref instruction.ColumnRef) string {
	switch r := ref.(type) {
	case instruction.ColumnIndex:
		return "column " + strings.TrimPrefix(r.String(), "#")
	case nil:
		return ""
	default:
		return r.String()
	}
}
