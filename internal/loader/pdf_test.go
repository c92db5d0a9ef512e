package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOCR records which pages were sent for recognition.
type fakeOCR struct {
	pages []int
	text  string
	err   error
}

func (f *fakeOCR) RecognizePage(_ context.Context, _ string, page int) (string, error) {
	f.pages = append(f.pages, page)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// recordingRunner is a test double for CommandRunner.
type recordingRunner struct {
	calls  [][]string
	output map[string][]byte
	err    map[string]error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.output[name], r.err[name]
}

func TestPDFExtractor_OCRFallbackPerPage(t *testing.T) {
	ocr := &fakeOCR{text: "texto reconocido por ocr"}
	p := NewPDFExtractor(ocr)

	pages := []string{
		"Esta página tiene una capa de texto suficiente.",
		"   \n  ",
		"corto",
		"exactamente veinte c",
	}

	out, err := p.applyOCR(context.Background(), "doc.pdf", pages)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3}, ocr.pages)
	assert.Equal(t, "Esta página tiene una capa de texto suficiente.", out[0])
	assert.Equal(t, "texto reconocido por ocr", out[1])
	assert.Equal(t, "texto reconocido por ocr", out[2])
	assert.Equal(t, "exactamente veinte c", out[3])
}

func TestPDFExtractor_ThresholdCountsRunes(t *testing.T) {
	p := NewPDFExtractor(nil)
	// 19 runes but more than 20 bytes.
	assert.True(t, p.needsOCR(strings.Repeat("ñ", 19)))
	assert.False(t, p.needsOCR(strings.Repeat("ñ", 20)))
}

func TestPDFExtractor_CustomThreshold(t *testing.T) {
	p := NewPDFExtractor(nil, WithOCRMinChars(5))
	assert.False(t, p.needsOCR("hola!"))
	assert.True(t, p.needsOCR("hola"))
}

func TestPDFExtractor_NoOCRKeepsText(t *testing.T) {
	p := NewPDFExtractor(nil)
	out, err := p.applyOCR(context.Background(), "doc.pdf", []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, out)
}

func TestPDFExtractor_OCRErrorPropagates(t *testing.T) {
	boom := errors.New("tesseract crashed")
	p := NewPDFExtractor(&fakeOCR{err: boom})

	_, err := p.applyOCR(context.Background(), "doc.pdf", []string{""})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestPDFExtractor_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a pdf"), 0o644))

	_, err := NewPDFExtractor(nil).Extract(context.Background(), path)
	assert.Error(t, err)
}

func TestTesseractOCR_RecognizePage(t *testing.T) {
	runner := &recordingRunner{
		output: map[string][]byte{"tesseract": []byte("Hola desde la imagen\n")},
	}
	ocr := NewTesseractOCR(runner, "", 0)

	text, err := ocr.RecognizePage(context.Background(), "/docs/scan.pdf", 3)
	require.NoError(t, err)
	assert.Equal(t, "Hola desde la imagen\n", text)

	require.Len(t, runner.calls, 2)
	raster := runner.calls[0]
	assert.Equal(t, "pdftoppm", raster[0])
	assert.Equal(t, []string{"-f", "3", "-l", "3", "-r", "300", "-png", "-singlefile", "/docs/scan.pdf"}, raster[1:10])

	recognize := runner.calls[1]
	assert.Equal(t, "tesseract", recognize[0])
	assert.Equal(t, raster[10]+".png", recognize[1])
	assert.Equal(t, []string{"stdout", "-l", "spa"}, recognize[2:])
}

func TestTesseractOCR_RasterizeFailure(t *testing.T) {
	boom := errors.New("exit status 1")
	runner := &recordingRunner{err: map[string]error{"pdftoppm": boom}}

	_, err := NewTesseractOCR(runner, "eng", 150).RecognizePage(context.Background(), "x.pdf", 1)
	require.ErrorIs(t, err, boom)
	assert.Len(t, runner.calls, 1)
}

func TestTesseractOCR_InvalidPage(t *testing.T) {
	_, err := NewTesseractOCR(&recordingRunner{}, "", 0).RecognizePage(context.Background(), "x.pdf", 0)
	assert.Error(t, err)
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "poppler")
	assert.Contains(t, instructions, "tesseract")
}

func TestInterfaceCompliance(t *testing.T) {
	var _ DocumentExtractor = (*TextExtractor)(nil)
	var _ DocumentExtractor = (*DocxExtractor)(nil)
	var _ DocumentExtractor = (*PDFExtractor)(nil)
	var _ OCREngine = (*TesseractOCR)(nil)
	var _ CommandRunner = ExecRunner{}
}
