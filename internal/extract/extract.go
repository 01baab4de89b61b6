// Package extract converts raw document bytes into a flat sequence of
// structural blocks. Each supported format has its own extractor; all of
// them preserve headings, lists and page boundaries where the format
// exposes them, so that chunking downstream can respect document structure.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"docqa/internal/domain"
)

// Format identifies a supported document format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
	FormatMD   Format = "md"
	FormatHTML Format = "html"
)

// Block is one structural unit of extracted text.
type Block struct {
	Text string
	Kind domain.SemanticType
	// Page is the 1-based page number for paged formats, 0 otherwise.
	Page int
	// Level is the heading level for heading blocks, 0 otherwise.
	Level int
}

// Result is the ordered output of a single extraction.
type Result struct {
	Blocks []Block
	Pages  int
}

// Text joins all block texts, mostly useful in tests.
func (r *Result) Text() string {
	parts := make([]string, 0, len(r.Blocks))
	for _, b := range r.Blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n")
}

func (r *Result) empty() bool {
	for _, b := range r.Blocks {
		if strings.TrimSpace(b.Text) != "" {
			return false
		}
	}
	return true
}

// DetectFormat infers the document format from the filename extension,
// falling back to the declared content type when the extension is missing
// or unknown.
func DetectFormat(filename, contentType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".txt":
		return FormatTXT, nil
	case ".md", ".markdown":
		return FormatMD, nil
	case ".html", ".htm":
		return FormatHTML, nil
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "pdf"):
		return FormatPDF, nil
	case strings.Contains(ct, "word") || strings.Contains(ct, "docx"):
		return FormatDOCX, nil
	case strings.Contains(ct, "html"):
		return FormatHTML, nil
	case strings.Contains(ct, "markdown"):
		return FormatMD, nil
	case strings.Contains(ct, "text/plain"):
		return FormatTXT, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, filename)
}

// Extract runs the format-specific extractor. A failed parse is reported as
// an ExtractionError and produces no blocks; an extraction that yields only
// whitespace is ErrEmptyDocument.
func Extract(format Format, data []byte) (*Result, error) {
	var (
		res *Result
		err error
	)
	switch format {
	case FormatPDF:
		res, err = extractPDF(data)
	case FormatDOCX:
		res, err = extractDOCX(data)
	case FormatHTML:
		res, err = extractHTML(data)
	case FormatMD:
		res, err = extractMarkdown(data)
	case FormatTXT:
		res, err = extractText(data)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, &domain.ExtractionError{Format: string(format), Err: err}
	}
	if res.empty() {
		return nil, domain.ErrEmptyDocument
	}
	return res, nil
}
