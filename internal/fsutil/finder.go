// Package fsutil finds configuration files on disk.
package fsutil

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// skippedDirs are never searched for configuration: they hold installed
// packages, not the project's own files.
var skippedDirs = map[string]bool{
	"node_modules":     true,
	"bower_components": true,
}

// FindFilesByExtension recursively searches rootPath for files ending with
// extension, in lexical order. Hidden directories (".git", ".sass-cache",
// ...) and package directories below the root are not descended into.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != rootPath && (strings.HasPrefix(d.Name(), ".") || skippedDirs[d.Name()]) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
