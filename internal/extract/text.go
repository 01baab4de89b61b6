package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"docqa/internal/domain"
)

// extractText detects a light structure in plain text: markdown-like
// headings, list markers and pipe-delimited table rows; everything else is
// grouped into paragraphs separated by blank lines.
func extractText(data []byte) (*Result, error) {
	res := &Result{}
	var para []string
	flush := func() {
		if len(para) > 0 {
			res.Blocks = append(res.Blocks, Block{Text: strings.Join(para, " "), Kind: domain.TypeParagraph})
			para = nil
		}
	}
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case strings.HasPrefix(trimmed, "#"):
			flush()
			level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
			if level > 6 {
				level = 6
			}
			res.Blocks = append(res.Blocks, Block{
				Text:  strings.TrimSpace(strings.TrimLeft(trimmed, "#")),
				Kind:  domain.TypeHeading,
				Level: level,
			})
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			flush()
			res.Blocks = append(res.Blocks, Block{Text: trimmed[2:], Kind: domain.TypeList})
		case strings.HasPrefix(trimmed, "|") && strings.Count(trimmed, "|") >= 2:
			flush()
			res.Blocks = append(res.Blocks, Block{Text: trimmed, Kind: domain.TypeTable})
		default:
			para = append(para, trimmed)
		}
	}
	flush()
	return res, nil
}

// extractMarkdown walks the goldmark AST so heading levels and list items
// survive even when the markdown formatting is irregular.
func extractMarkdown(data []byte) (*Result, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(data))
	res := &Result{}
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		appendMarkdownNode(res, node, data)
	}
	return res, nil
}

func appendMarkdownNode(res *Result, node ast.Node, source []byte) {
	switch n := node.(type) {
	case *ast.Heading:
		res.Blocks = append(res.Blocks, Block{
			Text:  nodeText(n, source),
			Kind:  domain.TypeHeading,
			Level: n.Level,
		})
	case *ast.List:
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			if t := nodeText(item, source); t != "" {
				res.Blocks = append(res.Blocks, Block{Text: t, Kind: domain.TypeList})
			}
		}
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if t := nodeText(node, source); t != "" {
			res.Blocks = append(res.Blocks, Block{Text: t, Kind: domain.TypeParagraph})
		}
	case *ast.Blockquote:
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			appendMarkdownNode(res, child, source)
		}
	default:
		if t := nodeText(node, source); t != "" {
			res.Blocks = append(res.Blocks, Block{Text: t, Kind: domain.TypeParagraph})
		}
	}
}

// nodeText collects the raw text segments under a node.
func nodeText(node ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.FencedCodeBlock:
			for i := 0; i < t.Lines().Len(); i++ {
				seg := t.Lines().At(i)
				sb.Write(seg.Value(source))
			}
		case *ast.CodeBlock:
			for i := 0; i < t.Lines().Len(); i++ {
				seg := t.Lines().At(i)
				sb.Write(seg.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
