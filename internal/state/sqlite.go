package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
// If logger is nil, a discard logger is used.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// NewSQLiteStoreFromDB wraps an existing connection. The caller is
// responsible for the schema.
func NewSQLiteStoreFromDB(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	s := NewSQLiteStore(logger)
	s.db = db
	return s
}

// Open opens a connection to the SQLite database, creating the parent
// directory when needed. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps :memory: databases alive across queries.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.logger.Debug("opened state store", slog.String("path", path))
	s.db = db
	s.path = path
	return nil
}

// OpenStore opens and migrates the store at path.
func OpenStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	s := NewSQLiteStore(logger)
	if err := s.Open(path); err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path is the database location.
func (s *SQLiteStore) Path() string { return s.path }

// RecordOperation inserts rec. Missing IDs and timestamps are filled in.
func (s *SQLiteStore) RecordOperation(ctx context.Context, rec *OperationRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if rec.StartedAt.IsZero() {
		rec.StartedAt = now
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = now
	}

	s.logger.Debug("recording operation", slog.String("id", rec.ID), slog.String("kind", rec.Kind))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO operations (id, file, instruction, kind, target, success, succeeded, failed, saved_path, summary, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.File, rec.Instruction, rec.Kind, rec.Target, boolToInt(rec.Success),
		rec.Succeeded, rec.Failed, rec.SavedPath, rec.Summary,
		rec.StartedAt.UTC().Format(timeLayout), rec.CompletedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record operation: %w", err)
	}
	return nil
}

const selectOperation = `SELECT id, file, instruction, kind, target, success, succeeded, failed, saved_path, summary, started_at, completed_at FROM operations`

// ListOperations returns up to limit records, newest first. A non-positive
// limit returns everything.
func (s *SQLiteStore) ListOperations(ctx context.Context, limit int) ([]*OperationRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, selectOperation+` ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*OperationRecord
	for rows.Next() {
		rec, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	return out, nil
}

// GetOperation retrieves a record by ID.
func (s *SQLiteStore) GetOperation(ctx context.Context, id string) (*OperationRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rec, err := scanOperation(s.db.QueryRowContext(ctx, selectOperation+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOperation(row scanner) (*OperationRecord, error) {
	var (
		rec                  OperationRecord
		success              int
		startedAt, completed string
	)
	err := row.Scan(&rec.ID, &rec.File, &rec.Instruction, &rec.Kind, &rec.Target, &success,
		&rec.Succeeded, &rec.Failed, &rec.SavedPath, &rec.Summary, &startedAt, &completed)
	if err != nil {
		return nil, err
	}
	rec.Success = success != 0
	if rec.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", startedAt, err)
	}
	if rec.CompletedAt, err = time.Parse(timeLayout, completed); err != nil {
		return nil, fmt.Errorf("invalid completed_at %q: %w", completed, err)
	}
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
