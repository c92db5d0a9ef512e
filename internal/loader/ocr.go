package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// OCREngine recognizes the text of a single rasterized PDF page.
type OCREngine interface {
	RecognizePage(ctx context.Context, pdfPath string, page int) (string, error)
}

// CommandRunner executes an external program and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args. Stderr is folded into the error on failure.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s (%s)", ErrOCRUnavailable, name, InstallInstructions())
		}
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Default OCR settings.
const (
	DefaultOCRLanguage = "spa"
	DefaultOCRDPI      = 300
)

// TesseractOCR rasterizes a page with pdftoppm and reads it with tesseract.
type TesseractOCR struct {
	runner   CommandRunner
	language string
	dpi      int
}

var _ OCREngine = (*TesseractOCR)(nil)

// NewTesseractOCR creates an OCR engine. A nil runner uses ExecRunner; empty
// language and non-positive dpi fall back to the defaults.
func NewTesseractOCR(runner CommandRunner, language string, dpi int) *TesseractOCR {
	if runner == nil {
		runner = ExecRunner{}
	}
	if language == "" {
		language = DefaultOCRLanguage
	}
	if dpi <= 0 {
		dpi = DefaultOCRDPI
	}
	return &TesseractOCR{runner: runner, language: language, dpi: dpi}
}

// RecognizePage renders page (1-based) of pdfPath to PNG and OCRs it.
func (t *TesseractOCR) RecognizePage(ctx context.Context, pdfPath string, page int) (string, error) {
	if page < 1 {
		return "", fmt.Errorf("invalid page number %d", page)
	}

	dir, err := os.MkdirTemp("", "ragchat-ocr-*")
	if err != nil {
		return "", fmt.Errorf("creating OCR workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	n := strconv.Itoa(page)
	if _, err := t.runner.Run(ctx, "pdftoppm",
		"-f", n, "-l", n,
		"-r", strconv.Itoa(t.dpi),
		"-png", "-singlefile",
		pdfPath, prefix,
	); err != nil {
		return "", fmt.Errorf("rasterizing page %d: %w", page, err)
	}

	out, err := t.runner.Run(ctx, "tesseract", prefix+".png", "stdout", "-l", t.language)
	if err != nil {
		return "", fmt.Errorf("recognizing page %d: %w", page, err)
	}
	return string(out), nil
}

// InstallInstructions describes how to install the OCR toolchain.
func InstallInstructions() string {
	return "install poppler and tesseract: brew install poppler tesseract tesseract-lang, " +
		"or apt install poppler-utils tesseract-ocr tesseract-ocr-spa"
}
