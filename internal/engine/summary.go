package engine

import (
	"fmt"
	"strings"
)

// Hints appended when an operation wrote nothing.
const (
	hintTransformExhausted = "Hint: every cell failed, the API may be overloaded (429) or unreachable; retry later"
	hintGenerateNothing    = "Hint: nothing was written; check the instruction and retry"
	hintAIGenerateNothing  = "Hint: the AI result was not written; retry later"
)

type summary struct {
	lines []string
}

func newSummary(file, operation string) *summary {
	return &summary{lines: []string{
		"File: " + file,
		"Operation: " + operation,
	}}
}

func (s *summary) add(format string, args ...any) *summary {
	s.lines = append(s.lines, fmt.Sprintf(format, args...))
	return s
}

// addOnce appends line unless it is empty or already present.
func (s *summary) addOnce(line string) *summary {
	if line == "" {
		return s
	}
	for _, l := range s.lines {
		if l == line {
			return s
		}
	}
	s.lines = append(s.lines, line)
	return s
}

func (s *summary) String() string {
	return strings.Join(s.lines, "\n")
}

// writeSummary is the shared shape for generate and transform results.
func writeSummary(file, operation, col string, rec reconciliation) *summary {
	s := newSummary(file, operation).
		add("Target: column %s", col).
		add("Succeeded: %d rows", rec.Succeeded)
	if rec.Failed > 0 {
		s.add("Failed: %d rows", rec.Failed)
	}
	return s.addOnce(rec.Save.Message)
}
