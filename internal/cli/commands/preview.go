package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsheet/internal/cli/output"
	"github.com/leapstack-labs/leapsheet/internal/dataset"
	"github.com/leapstack-labs/leapsheet/pkg/column"
)

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show the columns and first rows of a file",
		Long: `Show the first rows of a file with each column's letter and position, so
instructions like "column B" or "column 2" can be checked before running.`,
		Example: `  leapsheet preview sales.csv
  leapsheet preview sales.csv --rows 50 -o markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContextWithoutSession(cmd)
			ds, err := dataset.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to load file: %w", err)
			}
			return renderPreview(cmdCtx.Renderer, ds, rows)
		},
	}

	cmd.Flags().IntVarP(&rows, "rows", "n", 10, "Number of rows to show (0 for all)")

	return cmd
}

// previewable is the read-only part of a dataset used for display.
type previewable interface {
	Name() string
	Columns() []string
	Len() int
	Values(col string) ([]any, dataset.Kind, error)
}

func renderPreview(r *output.Renderer, ds previewable, limit int) error {
	cols := ds.Columns()
	n := ds.Len()
	if limit > 0 && limit < n {
		n = limit
	}

	headers := make([]string, 0, len(cols)+1)
	headers = append(headers, "#")
	columnValues := make([][]any, len(cols))
	for i, c := range cols {
		label := fmt.Sprintf("%s (%s)", c, column.Letters(i))
		if r.EffectiveMode() == output.ModeJSON || c == column.Letters(i) {
			label = c
		}
		headers = append(headers, label)
		values, _, err := ds.Values(c)
		if err != nil {
			return err
		}
		columnValues[i] = values
	}

	rows := make([][]string, n)
	for row := 0; row < n; row++ {
		line := make([]string, 0, len(cols)+1)
		line = append(line, fmt.Sprint(row+1))
		for i := range cols {
			line = append(line, output.Truncate(dataset.FormatValue(columnValues[i][row]), 40))
		}
		rows[row] = line
	}

	footer := fmt.Sprintf("(%s, %s)", output.Plural(ds.Len(), "row"), output.Plural(len(cols), "column"))
	if n < ds.Len() {
		footer = fmt.Sprintf("(showing %d of %s, %s)", n, output.Plural(ds.Len(), "row"), output.Plural(len(cols), "column"))
	}
	if r.EffectiveMode() != output.ModeJSON {
		r.Header(2, ds.Name())
	}
	return r.Table(headers, rows, footer)
}
