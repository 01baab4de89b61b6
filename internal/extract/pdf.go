package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"docqa/internal/domain"
)

// extractPDF pulls plain text page by page so every block keeps its page
// hint. Corrupt and password-protected files fail the NewReader call and
// surface as extraction errors.
func extractPDF(data []byte) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	total := reader.NumPage()
	res := &Result{Pages: total}
	for pageNum := 1; pageNum <= total; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}
		for _, para := range splitParagraphs(text) {
			res.Blocks = append(res.Blocks, Block{Text: para, Kind: domain.TypeParagraph, Page: pageNum})
		}
	}
	return res, nil
}

func splitParagraphs(text string) []string {
	var out []string
	for _, part := range strings.Split(text, "\n\n") {
		part = strings.TrimSpace(strings.ReplaceAll(part, "\n", " "))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
