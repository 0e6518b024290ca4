// Package state records the history of executed operations in SQLite.
package state

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an operation ID is unknown.
var ErrNotFound = errors.New("operation not found")

// OperationRecord is one executed instruction.
type OperationRecord struct {
	ID          string
	File        string
	Instruction string
	Kind        string
	Target      string
	Success     bool
	Succeeded   int
	Failed      int
	SavedPath   string
	Summary     string
	StartedAt   time.Time
	CompletedAt time.Time
}

// Duration is how long the operation took.
func (r *OperationRecord) Duration() time.Duration {
	if r.CompletedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Store persists operation history.
type Store interface {
	// RecordOperation inserts rec, assigning an ID when it has none.
	RecordOperation(ctx context.Context, rec *OperationRecord) error
	// ListOperations returns the most recent records first.
	ListOperations(ctx context.Context, limit int) ([]*OperationRecord, error)
	GetOperation(ctx context.Context, id string) (*OperationRecord, error)
	Close() error
}
