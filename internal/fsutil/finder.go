// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"path/filepath"
)

// FindFiles recursively searches rootPath for files whose extension is one
// of extensions (including the dot, e.g. ".hcl"). Paths come back in
// lexical walk order.
func FindFiles(rootPath string, extensions ...string) ([]string, error) {
	if len(extensions) == 0 {
		panic("at least one extension is required")
	}
	wanted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		wanted[ext] = true
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && wanted[filepath.Ext(path)] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// HasExtension reports whether path ends in one of extensions.
func HasExtension(path string, extensions ...string) bool {
	ext := filepath.Ext(path)
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}
