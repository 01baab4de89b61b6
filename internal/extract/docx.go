package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/gonfva/docxlib"

	"docqa/internal/domain"
)

var clauseNumberRe = regexp.MustCompile(`^\d+(\.\d+)+\s`)

// extractDOCX walks the document paragraphs. Word styles are not reliably
// present in the wild, so headings and clauses are recognised from the text
// shape instead.
func extractDOCX(data []byte) (*Result, error) {
	doc, err := docxlib.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	res := &Result{}
	for _, para := range doc.Paragraphs() {
		var sb strings.Builder
		for _, child := range para.Children() {
			if child.Run != nil && child.Run.Text != nil {
				sb.WriteString(child.Run.Text.Text)
			}
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		res.Blocks = append(res.Blocks, Block{Text: text, Kind: classifyDocxParagraph(text)})
	}
	return res, nil
}

func classifyDocxParagraph(text string) domain.SemanticType {
	switch {
	case clauseNumberRe.MatchString(text):
		return domain.TypeClause
	case looksLikeHeading(text):
		return domain.TypeHeading
	default:
		return domain.TypeParagraph
	}
}

// looksLikeHeading is a heuristic for style-less documents: short lines
// without terminal punctuation that start with an upper-case letter.
func looksLikeHeading(text string) bool {
	if len(text) > 80 || strings.ContainsAny(text, ".!?") {
		return false
	}
	runes := []rune(text)
	return len(runes) > 0 && unicode.IsUpper(runes[0])
}
