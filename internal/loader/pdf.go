package loader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// DefaultOCRMinChars is the trimmed page length below which a PDF page is
// treated as image-only.
const DefaultOCRMinChars = 20

// PDFExtractor extracts text per page and falls back to OCR for pages with no
// usable text layer.
type PDFExtractor struct {
	ocr      OCREngine
	minChars int
}

var _ DocumentExtractor = (*PDFExtractor)(nil)

// PDFOption configures a PDFExtractor.
type PDFOption func(*PDFExtractor)

// WithOCRMinChars sets the OCR fallback threshold.
func WithOCRMinChars(n int) PDFOption {
	return func(p *PDFExtractor) {
		if n > 0 {
			p.minChars = n
		}
	}
}

// NewPDFExtractor creates a PDF extractor. ocr may be nil to disable the
// fallback.
func NewPDFExtractor(ocr OCREngine, opts ...PDFOption) *PDFExtractor {
	p := &PDFExtractor{ocr: ocr, minChars: DefaultOCRMinChars}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract returns one entry per page.
func (p *PDFExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	pages, err := readPDFPages(path)
	if err != nil {
		return nil, err
	}
	return p.applyOCR(ctx, path, pages)
}

// applyOCR replaces the text of every page shorter than minChars with the OCR
// result for that page.
func (p *PDFExtractor) applyOCR(ctx context.Context, path string, pages []string) ([]string, error) {
	for i, text := range pages {
		if !p.needsOCR(text) {
			continue
		}
		if p.ocr == nil {
			slog.Debug("pdf page has no text layer and OCR is disabled", "path", path, "page", i+1)
			continue
		}

		slog.Debug("running OCR on pdf page", "path", path, "page", i+1)
		recognized, err := p.ocr.RecognizePage(ctx, path, i+1)
		if err != nil {
			return nil, fmt.Errorf("OCR page %d: %w", i+1, err)
		}
		pages[i] = recognized
	}
	return pages, nil
}

func (p *PDFExtractor) needsOCR(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) < p.minChars
}

// readPDFPages returns the plain text of every page in order. Pages without a
// content dictionary yield "".
func readPDFPages(path string) (pages []string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages = make([]string, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("reading page %d: %w", i, err)
		}
		pages[i-1] = text
	}
	return pages, nil
}
