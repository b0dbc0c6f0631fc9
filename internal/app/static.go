package app

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"tinyhttpd/internal/common"
)

const indexFile = "index.html"

// staticFile is one file of the static directory, read once at startup.
type staticFile struct {
	paths []string
	body  []byte
}

func (f staticFile) produce() []byte {
	return f.body
}

// loadStatic reads every file under dir. A file is served at prefix joined
// with its relative path; an index.html is also served at its directory.
func loadStatic(dir, prefix string) ([]staticFile, error) {
	names, err := common.ListBlobs(dir)
	if err != nil {
		return nil, fmt.Errorf("static dir %s: %w", dir, err)
	}

	prefix = "/" + strings.Trim(prefix, "/")
	files := make([]staticFile, 0, len(names))
	for _, name := range names {
		body, err := common.ReadBlob(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			return nil, fmt.Errorf("static file %s: %w", name, err)
		}
		p := path.Join(prefix, name)
		f := staticFile{paths: []string{p}, body: body}
		if path.Base(name) == indexFile {
			dirPath := path.Dir(p)
			if dirPath != "/" {
				dirPath += "/"
			}
			f.paths = append(f.paths, dirPath)
		}
		files = append(files, f)
	}
	return files, nil
}
