package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string)
		args      []string
		wantErr   bool
		wantFiles []string
		noFiles   []string
	}{
		{
			name:      "init empty directory",
			wantFiles: []string{"leapsheet.yaml", ".gitignore"},
			noFiles:   []string{"sample.csv"},
		},
		{
			name:      "init with example",
			args:      []string{"--example"},
			wantFiles: []string{"leapsheet.yaml", ".gitignore", "sample.csv"},
		},
		{
			name:      "init into subdirectory",
			args:      []string{"sheets"},
			wantFiles: []string{"sheets/leapsheet.yaml", "sheets/.gitignore"},
		},
		{
			name: "existing config without force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "leapsheet.yaml"), []byte("existing"), 0o600))
			},
			wantErr: true,
		},
		{
			name: "existing config with force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "leapsheet.yaml"), []byte("existing"), 0o600))
			},
			args:      []string{"--force"},
			wantFiles: []string{"leapsheet.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Chdir(tmpDir)

			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			cmd := NewInitCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			for _, f := range tt.wantFiles {
				_, err := os.Stat(filepath.Join(tmpDir, f))
				assert.NoError(t, err, "expected %q to exist", f)
			}
			for _, f := range tt.noFiles {
				_, err := os.Stat(filepath.Join(tmpDir, f))
				assert.True(t, os.IsNotExist(err), "expected %q to be absent", f)
			}
		})
	}
}

func TestInitCommandMetadata(t *testing.T) {
	cmd := NewInitCommand()

	assert.Equal(t, "init [directory]", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotNil(t, cmd.Flags().Lookup("force"))
	assert.NotNil(t, cmd.Flags().Lookup("example"))
}

func TestInitCreatesValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	require.NoError(t, cmd.Execute())

	content, err := os.ReadFile("leapsheet.yaml")
	require.NoError(t, err)
	for _, expected := range []string{"api_key:", "base_url:", "model:", "state_path:"} {
		assert.Contains(t, string(content), expected)
	}

	ignore, err := os.ReadFile(".gitignore")
	require.NoError(t, err)
	assert.Contains(t, string(ignore), ".leapsheet/")
}

func TestRenameSpecialFiles(t *testing.T) {
	assert.Equal(t, ".gitignore", renameSpecialFiles("gitignore"))
	assert.Equal(t, "sub/.gitignore", renameSpecialFiles("sub/gitignore"))
	assert.Equal(t, "sample.csv", renameSpecialFiles("sample.csv"))
}
