package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsheet/internal/dataset"
	"github.com/leapstack-labs/leapsheet/internal/state"
	"github.com/leapstack-labs/leapsheet/internal/testutil"
	"github.com/leapstack-labs/leapsheet/pkg/instruction"
)

func newSession(t *testing.T, ds Dataset, openErr error) (*Session, *state.SQLiteStore) {
	t.Helper()
	store, err := state.OpenStore(":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	s := NewSession(SessionConfig{
		Executor: newExecutor(t, upperModel()),
		History:  store,
		Logger:   testutil.NewTestLogger(t),
		Open: func(string) (Dataset, error) {
			if openErr != nil {
				return nil, openErr
			}
			return ds, nil
		},
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	})
	return s, store
}

func TestSession_RunRecordsHistory(t *testing.T) {
	f := sample(t)
	s, store := newSession(t, f, nil)

	res := s.Run(context.Background(), "/data/people.csv", "uppercase column A", nil)
	require.True(t, res.Success, res.Summary)
	assert.Equal(t, instruction.KindTransform, res.Kind)
	assert.Equal(t, "ALICE", columnValues(t, f, "Name")[0])

	recs, err := store.ListOperations(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, "people.csv", rec.File)
	assert.Equal(t, "uppercase column A", rec.Instruction)
	assert.Equal(t, "transform", rec.Kind)
	assert.Equal(t, "Name", rec.Target)
	assert.True(t, rec.Success)
	assert.Equal(t, 2, rec.Succeeded)
	assert.Equal(t, time.Second, rec.Duration())
}

func TestSession_LoadFailure(t *testing.T) {
	s, store := newSession(t, nil, errors.New("open /x.csv: no such file or directory"))

	res := s.Run(context.Background(), "/x.csv", "clear column A", nil)
	assert.False(t, res.Success)
	assert.Equal(t, "Failed to load file: open /x.csv: no such file or directory", res.Summary)

	recs, err := store.ListOperations(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Success)
}

func TestSession_ParseErrorSurfacedVerbatim(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"", instruction.MsgEmptyInput},
		{"make everything nicer", instruction.MsgNoColumn},
		{"column A", instruction.MsgNoDirective},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			f := sample(t)
			before := columnValues(t, f, "Name")
			s, _ := newSession(t, f, nil)

			res := s.Run(context.Background(), "people.csv", tt.text, nil)
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Summary)
			assert.Equal(t, before, columnValues(t, f, "Name"))
			assert.False(t, f.Dirty())
		})
	}
}

// panicDataset blows up on first use.
type panicDataset struct{ *dataset.Frame }

func (panicDataset) Cells(string) ([]dataset.Cell, error) { panic("corrupt frame") }

func TestSession_RecoversFromPanic(t *testing.T) {
	s, store := newSession(t, panicDataset{sample(t)}, nil)

	res := s.Run(context.Background(), "people.csv", "uppercase column A", nil)
	assert.False(t, res.Success)
	assert.Equal(t, "Internal error: corrupt frame", res.Summary)

	recs, err := store.ListOperations(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSession_DefaultsOpenRealFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.csv")
	require.NoError(t, os.WriteFile(path, []byte("City\nParis\nRome\n"), 0o600))

	s := NewSession(SessionConfig{Logger: testutil.NewTestLogger(t)})

	ds, err := s.Preview(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"City"}, ds.Columns())

	res := s.Run(context.Background(), path, "copy column 1 to column 2", nil)
	require.True(t, res.Success, res.Summary)
	assert.Equal(t, path, res.SavedPath)
	assert.Contains(t, res.Summary, "Saved to: "+path)

	reloaded, err := dataset.Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"City", "B"}, reloaded.Columns())
	values, _, err := reloaded.Values("B")
	require.NoError(t, err)
	assert.Equal(t, []any{"Paris", "Rome"}, values)
}

func TestSession_ParseOnly(t *testing.T) {
	s := NewSession(SessionConfig{})
	op, err := s.Parse("clear column 3")
	require.NoError(t, err)
	assert.Equal(t, instruction.KindClear, op.Kind)
	assert.Equal(t, instruction.ColumnIndex(2), op.Target)
}
