// Package docsource copies documents from remote sources into the local data
// directory so the indexer can pick them up.
package docsource

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var ErrNameCollision = errors.New("file name already written")

// SupportFunc reports whether a file name has a loadable extension.
type SupportFunc func(name string) bool

// Result lists what a sync wrote and what it passed over.
type Result struct {
	Written []string
	Skipped []string
}

// Writer stores files flat in a destination directory.
type Writer struct {
	dest    string
	seen    map[string]string
	Result  Result
	support SupportFunc
}

// NewWriter creates dest if needed.
func NewWriter(dest string, support SupportFunc) (*Writer, error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dest, err)
	}
	return &Writer{dest: dest, seen: make(map[string]string), support: support}, nil
}

// Accept reports whether the source path should be copied, recording the
// path as skipped when it should not.
func (w *Writer) Accept(sourcePath string) bool {
	if w.support != nil && !w.support(sourcePath) {
		w.Result.Skipped = append(w.Result.Skipped, sourcePath)
		return false
	}
	return true
}

// Write copies r to dest under the base name of sourcePath. Two source paths
// with the same base name are an error since the loader reads one level only.
func (w *Writer) Write(sourcePath string, r io.Reader) error {
	name := filepath.Base(sourcePath)
	if prev, ok := w.seen[name]; ok {
		return fmt.Errorf("%w: %s (from %s and %s)", ErrNameCollision, name, prev, sourcePath)
	}

	f, err := os.Create(filepath.Join(w.dest, name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	w.seen[name] = sourcePath
	w.Result.Written = append(w.Result.Written, name)
	return nil
}
