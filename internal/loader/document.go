// Package loader reads documents from a directory and turns them into
// normalized text units tagged with their source file.
//
// Format handling is pluggable: each file extension maps to a DocumentExtractor
// in a Registry. PDF pages without a usable text layer are passed through an
// OCREngine.
package loader

import (
	"errors"
	"fmt"
)

// UnknownSource is the source recorded when a file name is unavailable.
const UnknownSource = "desconocido"

var (
	ErrIngestion            = errors.New("ingestion failed")
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	ErrOCRUnavailable       = errors.New("OCR tooling not available")
)

// Metadata describes where a Document came from.
type Metadata struct {
	// Source is the originating file name (base name, no directory).
	Source string `json:"source"`

	// Page is the 1-based page number for paged formats, 0 otherwise.
	Page int `json:"page,omitempty"`
}

// Document is one normalized text unit extracted from a file.
type Document struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// IngestionError reports a format-specific extraction failure for one file.
type IngestionError struct {
	Path string
	Err  error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrIngestion, e.Path, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrIngestion) hold for every IngestionError.
func (e *IngestionError) Is(target error) bool { return target == ErrIngestion }
