package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsheet/internal/testutil"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenStore(":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Close())
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.GetMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate())
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	assert.Error(t, store.Migrate())
	assert.Error(t, store.RecordOperation(ctx, &OperationRecord{}))
	_, err := store.ListOperations(ctx, 10)
	assert.Error(t, err)
	_, err = store.GetOperation(ctx, "x")
	assert.Error(t, err)
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_RecordAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	started := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	rec := &OperationRecord{
		File:        "sales.csv",
		Instruction: "translate column B to Chinese",
		Kind:        "transform",
		Target:      "B",
		Success:     true,
		Succeeded:   9,
		Failed:      1,
		SavedPath:   "sales.csv",
		Summary:     "File: sales.csv\nSucceeded: 9 rows",
		StartedAt:   started,
		CompletedAt: started.Add(1500 * time.Millisecond),
	}
	require.NoError(t, store.RecordOperation(ctx, rec))
	require.NotEmpty(t, rec.ID)

	got, err := store.GetOperation(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.File, got.File)
	assert.Equal(t, rec.Instruction, got.Instruction)
	assert.Equal(t, rec.Kind, got.Kind)
	assert.Equal(t, rec.Target, got.Target)
	assert.True(t, got.Success)
	assert.Equal(t, 9, got.Succeeded)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, rec.Summary, got.Summary)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, 1500*time.Millisecond, got.Duration())
}

func TestSQLiteStore_RecordFillsDefaults(t *testing.T) {
	store := setupTestStore(t)
	rec := &OperationRecord{File: "a.csv", Instruction: "clear column A"}
	require.NoError(t, store.RecordOperation(context.Background(), rec))

	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.StartedAt.IsZero())
	assert.False(t, rec.CompletedAt.IsZero())
}

func TestSQLiteStore_GetUnknown(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.GetOperation(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ListOperations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, instr := range []string{"first", "second", "third"} {
		require.NoError(t, store.RecordOperation(ctx, &OperationRecord{
			File:        "a.csv",
			Instruction: instr,
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
			CompletedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
		}))
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "newest first", limit: 2, want: []string{"third", "second"}},
		{name: "no limit", limit: 0, want: []string{"third", "second", "first"}},
		{name: "limit above count", limit: 10, want: []string{"third", "second", "first"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := store.ListOperations(ctx, tt.limit)
			require.NoError(t, err)
			var got []string
			for _, r := range recs {
				got = append(got, r.Instruction)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSQLiteStore_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store, err := OpenStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.RecordOperation(context.Background(), &OperationRecord{File: "a.csv", Instruction: "x"}))
	require.NoError(t, store.Close())

	reopened, err := OpenStore(path, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	recs, err := reopened.ListOperations(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, path, reopened.Path())
}

func TestSQLiteStore_DatabaseErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := NewSQLiteStoreFromDB(db, nil)
	ctx := context.Background()
	boom := errors.New("disk I/O error")

	mock.ExpectExec("INSERT INTO operations").WillReturnError(boom)
	err = store.RecordOperation(ctx, &OperationRecord{File: "a.csv"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to record operation")

	mock.ExpectQuery("SELECT (.+) FROM operations ORDER BY").WillReturnError(boom)
	_, err = store.ListOperations(ctx, 5)
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery("SELECT (.+) FROM operations WHERE id").
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "file", "instruction", "kind", "target", "success", "succeeded", "failed",
			"saved_path", "summary", "started_at", "completed_at",
		}).AddRow("abc", "a.csv", "x", "clear", "A", 1, 3, 0, "", "", "not a time", "also not"))
	_, err = store.GetOperation(ctx, "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid started_at")

	assert.NoError(t, mock.ExpectationsWereMet())
}
