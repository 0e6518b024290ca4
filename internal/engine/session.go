package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/leapsheet/internal/dataset"
	"github.com/leapstack-labs/leapsheet/internal/state"
	"github.com/leapstack-labs/leapsheet/pkg/instruction"
)

// OpenFunc loads a dataset from a path.
type OpenFunc func(path string) (Dataset, error)

// SessionConfig holds session configuration.
type SessionConfig struct {
	Executor *Executor
	// Parser defaults to the built-in vocabulary.
	Parser *instruction.Parser
	// History records every run (optional).
	History state.Store
	// Open defaults to dataset.Open.
	Open   OpenFunc
	Logger *slog.Logger
	// Now is the clock used for history timestamps.
	Now func() time.Time
}

// Session runs instructions end to end: load, parse, execute, save, record.
type Session struct {
	executor *Executor
	parser   *instruction.Parser
	history  state.Store
	open     OpenFunc
	logger   *slog.Logger
	now      func() time.Time
}

// NewSession creates a session.
func NewSession(cfg SessionConfig) *Session {
	s := &Session{
		executor: cfg.Executor,
		parser:   cfg.Parser,
		history:  cfg.History,
		open:     cfg.Open,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.executor == nil {
		s.executor = New(Config{Logger: s.logger})
	}
	if s.parser == nil {
		s.parser = instruction.NewParser(instruction.DefaultVocabulary())
	}
	if s.open == nil {
		s.open = func(path string) (Dataset, error) { return dataset.Open(path) }
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Parse parses an instruction without touching any file.
func (s *Session) Parse(text string) (instruction.Operation, error) {
	return s.parser.Parse(text)
}

// Run loads path, applies the instruction and records the outcome. It always
// returns a Result with an actionable summary.
func (s *Session) Run(ctx context.Context, path, text string, progress ProgressFunc) (res Result) {
	started := s.now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("operation panicked", "panic", r, "file", path, "instruction", text)
			res = failure(fmt.Sprintf("Internal error: %v", r))
		}
		s.record(ctx, path, text, res, started)
	}()

	progress.report("Loading file...")
	ds, err := s.open(path)
	if err != nil {
		s.logger.Warn("failed to load dataset", "path", path, "error", err)
		return failure("Failed to load file: " + err.Error())
	}

	progress.report("Parsing instruction...")
	op, err := s.parser.Parse(text)
	if err != nil {
		var pe *instruction.ParseError
		if errors.As(err, &pe) {
			return failure(pe.Message)
		}
		return failure(err.Error())
	}
	s.logger.Debug("parsed instruction", "operation", op.String())

	return s.executor.Execute(ctx, ds, op, progress)
}

// Preview loads path for display.
func (s *Session) Preview(path string) (Dataset, error) {
	return s.open(path)
}

func (s *Session) record(ctx context.Context, path, text string, res Result, started time.Time) {
	if s.history == nil {
		return
	}
	rec := &state.OperationRecord{
		File:        filepath.Base(path),
		Instruction: text,
		Kind:        string(res.Kind),
		Target:      res.Target,
		Success:     res.Success,
		Succeeded:   res.Succeeded,
		Failed:      res.Failed,
		SavedPath:   res.SavedPath,
		Summary:     res.Summary,
		StartedAt:   started,
		CompletedAt: s.now(),
	}
	if err := s.history.RecordOperation(ctx, rec); err != nil {
		s.logger.Warn("failed to record operation", "error", err)
	}
}
