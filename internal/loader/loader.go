package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Yates-Labs/ragchat/internal/normalize"
)

// Result is the outcome of loading a directory.
type Result struct {
	Documents []Document

	// Skipped lists file names ignored because no extractor handles them.
	Skipped []string
}

// Loader reads every supported file in a directory.
type Loader struct {
	registry *Registry
}

// New creates a Loader. A nil registry uses DefaultRegistry without OCR.
func New(registry *Registry) *Loader {
	if registry == nil {
		registry = DefaultRegistry(nil)
	}
	return &Loader{registry: registry}
}

// Registry returns the loader's extractor registry.
func (l *Loader) Registry() *Registry {
	return l.registry
}

// Load reads dir (non-recursively) and returns normalized documents.
func (l *Loader) Load(ctx context.Context, dir string) ([]Document, error) {
	res, err := l.LoadDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	return res.Documents, nil
}

// LoadDir is Load with the list of skipped files.
// Files are visited in name order. An extractor failure aborts the whole load.
func (l *Loader) LoadDir(ctx context.Context, dir string) (*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &IngestionError{Path: dir, Err: err}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	res := &Result{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		extractor, err := l.registry.ForPath(path)
		if err != nil {
			if errors.Is(err, ErrUnsupportedExtension) {
				slog.Debug("skipping file", "path", path, "error", err)
				res.Skipped = append(res.Skipped, entry.Name())
				continue
			}
			return nil, err
		}

		docs, err := l.loadFile(ctx, extractor, path)
		if err != nil {
			return nil, err
		}
		res.Documents = append(res.Documents, docs...)
	}

	slog.Debug("loaded documents", "dir", dir, "documents", len(res.Documents), "skipped", len(res.Skipped))
	return res, nil
}

func (l *Loader) loadFile(ctx context.Context, extractor DocumentExtractor, path string) ([]Document, error) {
	units, err := extractor.Extract(ctx, path)
	if err != nil {
		return nil, &IngestionError{Path: path, Err: err}
	}

	source := sourceName(path)
	paged := len(units) > 1 || strings.EqualFold(filepath.Ext(path), ".pdf")

	docs := make([]Document, len(units))
	for i, text := range units {
		meta := Metadata{Source: source}
		if paged {
			meta.Page = i + 1
		}
		docs[i] = Document{
			Content:  normalize.Normalize(text),
			Metadata: meta,
		}
	}
	return docs, nil
}

func sourceName(path string) string {
	name := filepath.Base(path)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return UnknownSource
	}
	return name
}

// String implements fmt.Stringer for log output.
func (m Metadata) String() string {
	if m.Page > 0 {
		return fmt.Sprintf("%s#%d", m.Source, m.Page)
	}
	return m.Source
}
