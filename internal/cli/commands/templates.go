package commands

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

//go:embed all:templates
var templateFS embed.FS

// copyTemplate copies an embedded template directory into targetDir,
// renaming "gitignore" to ".gitignore". Existing files are kept unless
// force is set.
func copyTemplate(templateName, targetDir string, force bool) ([]string, error) {
	root := path.Join("templates", templateName)
	var written []string

	err := fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		name := renameSpecialFiles(p[len(root)+1:])
		target := filepath.Join(targetDir, filepath.FromSlash(name))

		if !force {
			if _, err := os.Stat(target); err == nil {
				return nil
			}
		}

		content, err := templateFS.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return err
		}
		if err := os.WriteFile(target, content, 0o600); err != nil {
			return err
		}
		written = append(written, name)
		return nil
	})
	return written, err
}

// renameSpecialFiles handles files that cannot be embedded under their
// real name.
func renameSpecialFiles(name string) string {
	dir, base := path.Split(name)
	if base == "gitignore" {
		return dir + ".gitignore"
	}
	return name
}
