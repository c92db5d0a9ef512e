package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DocumentExtractor pulls raw text out of a single file.
// Paged formats return one entry per page; other formats return one entry.
type DocumentExtractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

// ExtractorFunc adapts a plain function to DocumentExtractor.
type ExtractorFunc func(ctx context.Context, path string) ([]string, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, path string) ([]string, error) {
	return f(ctx, path)
}

// Registry maps file extensions to extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]DocumentExtractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]DocumentExtractor)}
}

// DefaultRegistry returns a registry with the .txt, .docx and .pdf extractors.
// ocr may be nil, in which case image-only PDF pages keep their (short) text.
func DefaultRegistry(ocr OCREngine, opts ...PDFOption) *Registry {
	r := NewRegistry()
	r.Register(".txt", NewTextExtractor())
	r.Register(".docx", NewDocxExtractor())
	r.Register(".pdf", NewPDFExtractor(ocr, opts...))
	return r
}

// Register binds ext (with or without the leading dot, any case) to e.
func (r *Registry) Register(ext string, e DocumentExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[canonicalExt(ext)] = e
}

// Lookup returns the extractor for ext or ErrUnsupportedExtension.
func (r *Registry) Lookup(ext string) (DocumentExtractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[canonicalExt(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
	return e, nil
}

// ForPath looks up the extractor for the extension of path.
func (r *Registry) ForPath(path string) (DocumentExtractor, error) {
	return r.Lookup(filepath.Ext(path))
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	_, err := r.ForPath(path)
	return err == nil
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func canonicalExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
