package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// SaveResult describes where a frame ended up.
type SaveResult struct {
	Path     string
	Fallback bool
	// Original is the path that could not be written when Fallback is set.
	Original string
}

// Message renders the result for operation summaries.
func (r SaveResult) Message() string {
	if r.Fallback {
		return fmt.Sprintf("Original file is locked, saved to: %s", r.Path)
	}
	return fmt.Sprintf("Saved to: %s", r.Path)
}

// PersistenceError reports that neither the original path nor the fallback
// path could be written.
type PersistenceError struct {
	Path         string
	FallbackPath string
	Err          error
	FallbackErr  error
}

func (e *PersistenceError) Error() string {
	if e.FallbackPath == "" {
		return fmt.Sprintf("failed to save %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("failed to save %s (%v) and fallback %s (%v)", e.Path, e.Err, e.FallbackPath, e.FallbackErr)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CreateFunc opens a file for writing, truncating it.
type CreateFunc func(path string) (io.WriteCloser, error)

// FileStore writes frames back to delimited files. When the target is locked
// or not writable it writes a timestamped sibling instead.
type FileStore struct {
	path   string
	create CreateFunc
	now    func() time.Time
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithCreate overrides file creation.
func WithCreate(fn CreateFunc) FileStoreOption {
	return func(s *FileStore) { s.create = fn }
}

// WithClock overrides the clock used for fallback names.
func WithClock(now func() time.Time) FileStoreOption {
	return func(s *FileStore) { s.now = now }
}

// NewFileStore returns a store that saves to path.
func NewFileStore(path string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		path: path,
		create: func(p string) (io.WriteCloser, error) {
			return os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path is the primary save location.
func (s *FileStore) Path() string { return s.path }

// Save implements Saver.
func (s *FileStore) Save(ctx context.Context, f *Frame) (SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return SaveResult{}, err
	}
	format, err := FormatFor(s.path)
	if err != nil {
		return SaveResult{}, err
	}

	err = s.write(s.path, f, format)
	if err == nil {
		return SaveResult{Path: s.path}, nil
	}
	if !IsLocked(err) {
		return SaveResult{}, &PersistenceError{Path: s.path, Err: err}
	}

	fallback := FallbackPath(s.path, s.now())
	if ferr := s.write(fallback, f, format); ferr != nil {
		return SaveResult{}, &PersistenceError{Path: s.path, Err: err, FallbackPath: fallback, FallbackErr: ferr}
	}
	return SaveResult{Path: fallback, Fallback: true, Original: s.path}, nil
}

func (s *FileStore) write(path string, f *Frame, format Format) (err error) {
	w, err := s.create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return Encode(w, f, format)
}

// FallbackPath names the sibling written when path is locked:
// report.csv becomes report_saved_20240102_150405.csv.
func FallbackPath(path string, at time.Time) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s_saved_%s%s", stem, at.Format("20060102_150405"), ext)
}

// IsLocked reports whether err means the file is held by another process or
// not writable by us.
func IsLocked(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EBUSY) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"being used by another process", "resource busy", "locked", "permission denied"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
