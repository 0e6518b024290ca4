// Package dataset holds the in-memory table an operation works on and the
// delimited-text adapter that loads and saves it.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Kind is the storage type of a column.
type Kind int

// Column kinds.
const (
	KindEmpty Kind = iota
	KindNumeric
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	default:
		return "empty"
	}
}

// Sentinel errors.
var (
	ErrColumnNotFound = errors.New("column not found")
	ErrColumnExists   = errors.New("column already exists")
	ErrTypeConflict   = errors.New("text value in numeric column")
	ErrRowOutOfRange  = errors.New("row out of range")
	ErrUnsupported    = errors.New("unsupported cell value")
	ErrNoBackingFile  = errors.New("dataset has no backing file")
)

// Cell is a non-empty value at a row of some column.
type Cell struct {
	Row   int
	Value any
}

// Saver persists a frame. FileStore is the file-backed implementation.
type Saver interface {
	Save(ctx context.Context, f *Frame) (SaveResult, error)
}

// Frame is an ordered set of uniquely named, equal-length columns. Cells hold
// nil, int64, float64 or string. A Frame is not safe for concurrent use.
type Frame struct {
	name    string
	columns []string
	index   map[string]int
	kinds   []Kind
	data    [][]any
	rows    int
	dirty   bool
	saver   Saver
}

// New returns an empty frame with the given columns and no rows.
func New(name string, columns ...string) *Frame {
	f := &Frame{name: name, index: make(map[string]int)}
	for _, c := range columns {
		_ = f.AddColumn(c)
	}
	return f
}

// Name is the display name, usually the base file name.
func (f *Frame) Name() string { return f.name }

// Columns returns a copy of the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

// Len is the number of rows.
func (f *Frame) Len() int { return f.rows }

// Dirty reports whether the frame changed since it was loaded or saved.
func (f *Frame) Dirty() bool { return f.dirty }

// MarkDirty flags the frame as needing a save.
func (f *Frame) MarkDirty() { f.dirty = true }

// SetSaver attaches the persistence backend used by Save.
func (f *Frame) SetSaver(s Saver) { f.saver = s }

// HasColumn reports whether name is a column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Kind returns the storage kind of a column.
func (f *Frame) Kind(col string) (Kind, error) {
	i, ok := f.index[col]
	if !ok {
		return KindEmpty, fmt.Errorf("%w: %s", ErrColumnNotFound, col)
	}
	return f.kinds[i], nil
}

// AddColumn appends an empty column.
func (f *Frame) AddColumn(name string) error {
	if _, ok := f.index[name]; ok {
		return fmt.Errorf("%w: %s", ErrColumnExists, name)
	}
	f.index[name] = len(f.columns)
	f.columns = append(f.columns, name)
	f.kinds = append(f.kinds, KindEmpty)
	f.data = append(f.data, make([]any, f.rows))
	return nil
}

// EnsureColumn adds name as an empty column unless it exists and reports
// whether it was created.
func (f *Frame) EnsureColumn(name string) bool {
	if f.HasColumn(name) {
		return false
	}
	_ = f.AddColumn(name)
	return true
}

// AppendRows grows every column by n empty cells.
func (f *Frame) AppendRows(n int) {
	if n <= 0 {
		return
	}
	for i := range f.data {
		f.data[i] = append(f.data[i], make([]any, n)...)
	}
	f.rows += n
}

// Get returns the cell at row of col.
func (f *Frame) Get(row int, col string) (any, error) {
	i, ok := f.index[col]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, col)
	}
	if row < 0 || row >= f.rows {
		return nil, fmt.Errorf("%w: %d", ErrRowOutOfRange, row)
	}
	return f.data[i][row], nil
}

// Set writes v at row of col. Writing a string into a numeric column fails
// with ErrTypeConflict; call Widen first.
func (f *Frame) Set(row int, col string, v any) error {
	i, ok := f.index[col]
	if !ok {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, col)
	}
	if row < 0 || row >= f.rows {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, row)
	}
	v, err := normalizeValue(v)
	if err != nil {
		return err
	}
	switch v.(type) {
	case nil:
	case string:
		if f.kinds[i] == KindNumeric {
			return fmt.Errorf("%w: column %s", ErrTypeConflict, col)
		}
		f.kinds[i] = KindText
	default:
		if f.kinds[i] == KindEmpty {
			f.kinds[i] = KindNumeric
		}
	}
	f.data[i][row] = v
	return nil
}

// Widen switches a column to text so it accepts any value.
func (f *Frame) Widen(col string) error {
	i, ok := f.index[col]
	if !ok {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, col)
	}
	f.kinds[i] = KindText
	return nil
}

// Values returns a copy of a column and its kind.
func (f *Frame) Values(col string) ([]any, Kind, error) {
	i, ok := f.index[col]
	if !ok {
		return nil, KindEmpty, fmt.Errorf("%w: %s", ErrColumnNotFound, col)
	}
	out := make([]any, f.rows)
	copy(out, f.data[i])
	return out, f.kinds[i], nil
}

// SetValues replaces a column wholesale. values is padded with nil or
// truncated to Len.
func (f *Frame) SetValues(col string, values []any, kind Kind) error {
	i, ok := f.index[col]
	if !ok {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, col)
	}
	data := make([]any, f.rows)
	for r := 0; r < f.rows && r < len(values); r++ {
		v, err := normalizeValue(values[r])
		if err != nil {
			return err
		}
		data[r] = v
	}
	f.data[i] = data
	f.kinds[i] = kind
	return nil
}

// Cells returns the non-empty cells of a column. Blank strings count as empty.
func (f *Frame) Cells(col string) ([]Cell, error) {
	i, ok := f.index[col]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, col)
	}
	var out []Cell
	for r, v := range f.data[i] {
		if isBlank(v) {
			continue
		}
		out = append(out, Cell{Row: r, Value: v})
	}
	return out, nil
}

// Row renders a row as strings, one per column.
func (f *Frame) Row(row int) []string {
	out := make([]string, len(f.columns))
	if row < 0 || row >= f.rows {
		return out
	}
	for i := range f.columns {
		out[i] = FormatValue(f.data[i][row])
	}
	return out
}

// Save persists the frame through its Saver and clears the dirty flag on
// success.
func (f *Frame) Save(ctx context.Context) (SaveResult, error) {
	if f.saver == nil {
		return SaveResult{}, ErrNoBackingFile
	}
	res, err := f.saver.Save(ctx, f)
	if err != nil {
		return res, err
	}
	f.dirty = false
	return res, nil
}

// FormatValue renders a cell for display and for delimited output.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		for _, r := range x {
			if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
				return false
			}
		}
		return true
	}
	return false
}
