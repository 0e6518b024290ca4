// Package instruction turns short natural-language spreadsheet commands into
// typed operations.
//
// Parsing is a deterministic rule cascade. It never guesses: input that does
// not name a column, or names one without saying what to do, is rejected with
// a ParseError that carries a human-readable diagnostic.
package instruction

import (
	"fmt"
	"strconv"
)

// Kind identifies which execution strategy an operation selects.
type Kind string

// Operation kinds.
const (
	KindTransform Kind = "transform"
	KindGenerate  Kind = "generate"
	KindCopy      Kind = "copy"
	KindClear     Kind = "clear"
)

// ColumnRef references a column either by 0-based ordinal or by name.
// The set of implementations is closed: ColumnIndex and ColumnName.
type ColumnRef interface {
	fmt.Stringer
	isColumnRef()
}

// ColumnIndex is a 0-based column ordinal. "column 1" parses to ColumnIndex(0).
type ColumnIndex int

func (ColumnIndex) isColumnRef() {}

// String renders the index the way a user typed it (1-based).
func (c ColumnIndex) String() string {
	return "#" + strconv.Itoa(int(c)+1)
}

// ColumnName is an uppercased letter code or a literal column name.
type ColumnName string

func (ColumnName) isColumnRef() {}

func (c ColumnName) String() string {
	return string(c)
}

// GenerateSpec describes the values a Generate operation produces.
// The set of implementations is closed: NumberSequence, EnumeratedList and
// AIFreeform.
type GenerateSpec interface {
	isGenerateSpec()
}

// NumberSequence is an inclusive integer range.
type NumberSequence struct {
	Start int
	End   int
}

func (NumberSequence) isGenerateSpec() {}

// MaxSequenceLength caps a NumberSequence at the row limit of a worksheet.
const MaxSequenceLength = 1 << 20

// Len returns the number of values in the sequence, or -1 when it is longer
// than MaxSequenceLength.
func (s NumberSequence) Len() int {
	if s.Start > s.End {
		return 0
	}
	if uint64(s.End)-uint64(s.Start) >= MaxSequenceLength {
		return -1
	}
	return s.End - s.Start + 1
}

// Values expands the sequence. It is empty when Start > End and truncated at
// MaxSequenceLength values.
func (s NumberSequence) Values() []int64 {
	if s.Start > s.End {
		return nil
	}
	n := s.Len()
	if n < 0 {
		n = MaxSequenceLength
	}
	out := make([]int64, 0, n)
	for i := s.Start; len(out) < n; i++ {
		out = append(out, int64(i))
		if i == s.End {
			break
		}
	}
	return out
}

// EnumeratedList is a literal sequence of values written in order.
type EnumeratedList struct {
	Values []string
}

func (EnumeratedList) isGenerateSpec() {}

// AIFreeform hands the prompt to the model to produce one value per row.
type AIFreeform struct {
	Prompt string
}

func (AIFreeform) isGenerateSpec() {}

// Operation is the parsed form of an instruction.
type Operation struct {
	Kind Kind
	// Target is the column acted on. For Copy it is the source column.
	Target ColumnRef
	// CopyTargets is set only for Copy and never contains Target.
	CopyTargets []ColumnRef
	// Directive is the residual instruction text, e.g. "translate to Chinese".
	Directive string
	// Generate is set only for Generate.
	Generate GenerateSpec
}

// ParseError reports why an instruction could not be turned into an
// Operation.
type ParseError struct {
	Input   string
	Message string
}

func (e *ParseError) Error() string {
	return e.Message
}

func newParseError(input, msg string) *ParseError {
	return &ParseError{Input: input, Message: msg}
}

// Diagnostic messages returned by Parse.
const (
	MsgNoColumn      = "cannot identify target column, use forms like 'column A' or 'column 1'"
	MsgNoDirective   = "describe the operation to perform, e.g. 'translate to Chinese'"
	MsgEmptyInput    = "instruction is empty"
	MsgCopyNoSource  = "cannot identify the source column to copy from"
	MsgCopyNoTargets = "cannot identify copy targets distinct from the source column"
	MsgSequenceLong  = "number range is too long, at most 1048576 values can be generated"
)

// DescribeGenerate returns a short label for a GenerateSpec, used in
// summaries and the parse command.
func DescribeGenerate(g GenerateSpec) string {
	switch s := g.(type) {
	case NumberSequence:
		return fmt.Sprintf("number sequence %d..%d", s.Start, s.End)
	case EnumeratedList:
		return fmt.Sprintf("list of %d values", len(s.Values))
	case AIFreeform:
		return "AI generated"
	default:
		return "none"
	}
}
