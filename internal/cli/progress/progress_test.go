package progress

import (
	"bytes"
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PlainLines(t *testing.T) {
	var buf bytes.Buffer
	err := Run(context.Background(), Options{Out: &buf}, func(_ context.Context, update UpdateFunc) {
		update("Loading file...")
		update("Processing 1/2...")
	})
	require.NoError(t, err)
	assert.Equal(t, "Loading file...\nProcessing 1/2...\n", buf.String())
}

func TestRun_NilOutput(t *testing.T) {
	called := false
	err := Run(context.Background(), Options{Interactive: true}, func(_ context.Context, update UpdateFunc) {
		update("ignored")
		called = true
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestModel(t *testing.T) {
	m := newModel("Working...")
	assert.Contains(t, m.View(), "Working...")
	assert.NotNil(t, m.Init())

	next, cmd := m.Update(statusMsg("Processing 3/10..."))
	assert.Nil(t, cmd)
	assert.Contains(t, next.View(), "Processing 3/10...")

	next, cmd = next.Update(doneMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.View())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.InterruptMsg{}, cmd())
}
