package common

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReadBlob reads a whole file.
func ReadBlob(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ListBlobs returns the regular files under root as slash-separated paths
// relative to root, sorted. Hidden files and directories are skipped.
func ListBlobs(root string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
