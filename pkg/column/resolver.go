// Package column resolves parsed column references against a live schema.
package column

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapsheet/pkg/instruction"
)

// Resolve maps ref to a concrete column name in columns.
//
// Ordinals in range resolve to the column at that position. With allowCreate
// an out-of-range ordinal yields a fresh name ("A".."Z" for the first 26
// positions, "ColN" beyond) and an unknown name is returned unchanged.
// Without allowCreate a spreadsheet letter code ("B", "AA") that is not a
// header falls back to the column at that letter's position. With allowCreate
// the same code names a new column instead, so with headers Name,Age a
// transform of "B" edits Age while a generate into "B" adds column "B".
func Resolve(ref instruction.ColumnRef, columns []string, allowCreate bool) (string, bool) {
	switch r := ref.(type) {
	case instruction.ColumnIndex:
		return resolveIndex(int(r), columns, allowCreate)

	case instruction.ColumnName:
		name := string(r)
		if name == "" {
			return "", false
		}
		for _, c := range columns {
			if c == name {
				return c, true
			}
		}
		for _, c := range columns {
			if strings.EqualFold(c, name) {
				return c, true
			}
		}
		if n, err := strconv.Atoi(name); err == nil {
			return resolveIndex(n-1, columns, allowCreate)
		}
		if allowCreate {
			return name, true
		}
		if i, ok := LetterIndex(name); ok && i < len(columns) {
			return columns[i], true
		}
		return "", false
	}
	return "", false
}

func resolveIndex(i int, columns []string, allowCreate bool) (string, bool) {
	if i < 0 {
		return "", false
	}
	if i < len(columns) {
		return columns[i], true
	}
	if !allowCreate {
		return "", false
	}
	if i < 26 {
		return string(rune('A' + i)), true
	}
	return "Col" + strconv.Itoa(i+1), true
}

// Letters returns the spreadsheet letter code for a 0-based index:
// 0 is "A", 25 is "Z", 26 is "AA".
func Letters(i int) string {
	if i < 0 {
		return ""
	}
	var b []byte
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// LetterIndex is the inverse of Letters. It accepts only ASCII letters,
// case-insensitively.
func LetterIndex(s string) (int, bool) {
	if s == "" || len(s) > 3 {
		return 0, false
	}
	n := 0
	for _, r := range strings.ToUpper(s) {
		if r < 'A' || r > 'Z' {
			return 0, false
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1, true
}
