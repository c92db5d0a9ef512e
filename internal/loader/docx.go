package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// DocxExtractor pulls paragraph text out of Word .docx files.
type DocxExtractor struct{}

var _ DocumentExtractor = (*DocxExtractor)(nil)

// NewDocxExtractor creates a .docx extractor.
func NewDocxExtractor() *DocxExtractor {
	return &DocxExtractor{}
}

// Extract returns the document body as a single unit, one line per paragraph.
func (d *DocxExtractor) Extract(_ context.Context, path string) ([]string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening docx archive: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("opening document.xml: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading document.xml: %w", err)
		}

		text, err := parseDocumentXML(content)
		if err != nil {
			return nil, err
		}
		return []string{text}, nil
	}

	return nil, fmt.Errorf("word/document.xml not found")
}

// wordNamespace is the WordprocessingML main namespace.
const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// parseDocumentXML collects every w:t run in document order, wherever it is
// nested (tables, hyperlinks, content controls). Paragraphs end with a newline;
// tabs and breaks become whitespace.
func parseDocumentXML(content []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))

	var b strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteString("\t")
			case "br", "cr":
				b.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
