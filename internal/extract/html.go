package extract

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"docqa/internal/domain"
)

// extractHTML walks the parsed node tree, mapping h1-h6 to headings, li to
// list items and table rows to table blocks. Script and style subtrees are
// skipped entirely.
func extractHTML(data []byte) (*Result, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	res := &Result{}
	walkHTML(res, root)
	return res, nil
}

func walkHTML(res *Result, node *html.Node) {
	if node.Type == html.ElementNode {
		switch node.Data {
		case "script", "style", "head", "noscript":
			return
		case "h1", "h2", "h3", "h4", "h5", "h6":
			if t := htmlText(node); t != "" {
				res.Blocks = append(res.Blocks, Block{
					Text:  t,
					Kind:  domain.TypeHeading,
					Level: int(node.Data[1] - '0'),
				})
			}
			return
		case "li":
			if t := htmlText(node); t != "" {
				res.Blocks = append(res.Blocks, Block{Text: t, Kind: domain.TypeList})
			}
			return
		case "tr":
			if t := htmlRowText(node); t != "" {
				res.Blocks = append(res.Blocks, Block{Text: t, Kind: domain.TypeTable})
			}
			return
		case "p":
			if t := htmlText(node); t != "" {
				res.Blocks = append(res.Blocks, Block{Text: t, Kind: domain.TypeParagraph})
			}
			return
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		walkHTML(res, child)
	}
	// Bare text directly under body or div, outside any p tag.
	if node.Type == html.TextNode && node.Parent != nil &&
		(node.Parent.Data == "body" || node.Parent.Data == "div") {
		if t := strings.TrimSpace(node.Data); t != "" {
			res.Blocks = append(res.Blocks, Block{Text: t, Kind: domain.TypeParagraph})
		}
	}
}

func htmlText(node *html.Node) string {
	var sb bytes.Buffer
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(node)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func htmlRowText(row *html.Node) string {
	var cells []string
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			if t := htmlText(c); t != "" {
				cells = append(cells, t)
			}
		}
	}
	return strings.Join(cells, " | ")
}
