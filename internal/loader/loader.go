// Package loader reads pipeline definitions from disk. Two formats are
// understood: HCL files (.hcl), which may hold several pipeline blocks, and
// JSON files (.json) holding one definition in the remote service's wire
// shape.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vk/syncgraph/internal/ctxlog"
	"github.com/vk/syncgraph/internal/fsutil"
	"github.com/vk/syncgraph/internal/pipeline"
)

var extensions = []string{".hcl", ".json"}

// Loader loads pipeline definitions from files and directories.
type Loader struct{}

// New creates a new definition loader.
func New() *Loader {
	return &Loader{}
}

// Load walks all given paths and returns every definition found, in file
// name order. Missing paths are skipped.
func (l *Loader) Load(ctx context.Context, paths ...string) ([]pipeline.Definition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Definition loader started.", "path_count", len(paths))

	files, err := l.findAllFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered definition files.", "count", len(files))

	var defs []pipeline.Definition
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}

		var found []pipeline.Definition
		switch filepath.Ext(file) {
		case ".hcl":
			found, err = ParseHCL(ctx, file, src)
		case ".json":
			var def pipeline.Definition
			def, err = ParseJSON(src)
			found = []pipeline.Definition{def}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		defs = append(defs, found...)
	}

	logger.Debug("Definition loading complete.", "definitions", len(defs))
	return defs, nil
}

// findAllFiles walks all given paths and returns a sorted, de-duplicated list
// of every definition file found.
func (l *Loader) findAllFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if fsutil.HasExtension(path, extensions...) {
				add(path)
			}
			continue
		}

		found, err := fsutil.FindFiles(path, extensions...)
		if err != nil {
			return nil, fmt.Errorf("error walking %s: %w", path, err)
		}
		for _, p := range found {
			add(p)
		}
	}
	sort.Strings(allFiles)
	return allFiles, nil
}
