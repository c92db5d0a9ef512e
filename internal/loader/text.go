package loader

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"
)

// TextExtractor reads plain UTF-8 text files verbatim.
type TextExtractor struct{}

var _ DocumentExtractor = (*TextExtractor)(nil)

// NewTextExtractor creates a plain-text extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract returns the whole file as a single unit.
func (t *TextExtractor) Extract(_ context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("file is not valid UTF-8")
	}
	return []string{string(data)}, nil
}
