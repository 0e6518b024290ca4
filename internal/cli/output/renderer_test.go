package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode Mode, tty bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, tty, mode), out, errOut
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode Mode
		tty  bool
		want Mode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{"", false, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
		{"TEXT", false, ModeText},
		{ModeMarkdown, true, ModeMarkdown},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r, _, _ := newTestRenderer(tt.mode, tt.tty)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestNewRenderer_BufferIsNotTTY(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.False(t, r.IsTTY())
}

func TestTable_Markdown(t *testing.T) {
	r, out, _ := newTestRenderer(ModeMarkdown, false)
	require.NoError(t, r.Table([]string{"Name", "Score"}, [][]string{{"alice", "90"}, {"bob", "75"}}, "(2 rows)"))

	got := out.String()
	assert.Contains(t, strings.ToLower(got), "| name")
	assert.Contains(t, got, "alice")
	assert.Contains(t, got, "(2 rows)")
	assert.NotContains(t, got, "\x1b[")
}

func TestTable_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.Table([]string{"Name", "Score"}, [][]string{{"alice", "90"}}, "ignored"))

	var got []map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, []map[string]string{{"Name": "alice", "Score": "90"}}, got)
}

func TestResult(t *testing.T) {
	res := Result{
		File:      "people.csv",
		Success:   false,
		Summary:   "File: people.csv\nFailed: 3 rows\nHint: retry later",
		Failed:    3,
		Succeeded: 0,
	}

	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeMarkdown, false)
		require.NoError(t, r.Result(res))
		assert.Contains(t, out.String(), "## Operation failed")
		assert.Contains(t, out.String(), "Hint: retry later")
		assert.Equal(t, 2, strings.Count(out.String(), "```"))
	})

	t.Run("json", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeJSON, false)
		require.NoError(t, r.Result(res))
		var got Result
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, res, got)
	})

	t.Run("text", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText, false)
		require.NoError(t, r.Result(res))
		assert.Contains(t, out.String(), "File: people.csv")
		assert.Contains(t, out.String(), "  Failed: 3 rows")
	})
}

func TestMessages(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText, false)
	r.Success("saved")
	r.Error("boom")
	r.Warning("careful")
	r.StatusLine("leapsheet.yaml", "success", "created")

	assert.Contains(t, out.String(), "✓ saved")
	assert.Contains(t, out.String(), "leapsheet.yaml created")
	assert.Contains(t, errOut.String(), "✗ boom")
	assert.Contains(t, errOut.String(), "! careful")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Title", FormatHeader(2, "Title"))
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "- **Model:** qwen", FormatKeyValue("Model", "qwen"))
	assert.Equal(t, "abc…", Truncate("abcdef", 4))
	assert.Equal(t, "a b", Truncate("a\nb", 10))
	assert.Equal(t, "1 row", Plural(1, "row"))
	assert.Equal(t, "3 rows", Plural(3, "row"))
}
