package engine

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapsheet/pkg/column"
	"github.com/leapstack-labs/leapsheet/pkg/instruction"
)

// ResolutionError reports a column reference that does not name an existing
// column.
type ResolutionError struct {
	Ref       instruction.ColumnRef
	Role      string
	Available []string
	// Limit caps how many available columns are listed.
	Limit int
}

func (e *ResolutionError) Error() string {
	role := e.Role
	if role == "" {
		role = "Column"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s not found: %s", role, describeRef(e.Ref))
	fmt.Fprintf(&b, "\nAvailable columns: %s", listColumns(e.Available, e.Limit))
	return b.String()
}

func listColumns(cols []string, limit int) string {
	if len(cols) == 0 {
		return "(none)"
	}
	if limit <= 0 || len(cols) <= limit {
		return strings.Join(cols, ", ")
	}
	return fmt.Sprintf("%s ... (%d columns)", strings.Join(cols[:limit], ", "), len(cols))
}

func describeRef(ref instruction.ColumnRef) string {
	switch r := ref.(type) {
	case instruction.ColumnIndex:
		return fmt.Sprintf("column %d", int(r)+1)
	case instruction.ColumnName:
		return string(r)
	default:
		return "(none)"
	}
}

func resolveExisting(ds Dataset, ref instruction.ColumnRef, role string, limit int) (string, error) {
	cols := ds.Columns()
	name, ok := column.Resolve(ref, cols, false)
	if !ok {
		return "", &ResolutionError{Ref: ref, Role: role, Available: cols, Limit: limit}
	}
	return name, nil
}
