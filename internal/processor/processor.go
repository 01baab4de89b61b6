// Package processor turns extracted document structure into annotated,
// ordered chunks ready for indexing.
package processor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"docqa/internal/domain"
	"docqa/internal/extract"
)

var sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// Processor splits extracted blocks into chunks bounded by a target length,
// preferring structural and sentence boundaries over hard cuts, with a
// configured overlap carried between adjacent chunks.
type Processor struct {
	size       int
	overlap    int
	categories []Category
}

func New(size, overlap int, categories []Category) *Processor {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Processor{size: size, overlap: overlap, categories: categories}
}

// rawChunk is an assembled span of text before annotation.
type rawChunk struct {
	text string
	hint domain.SemanticType
	page int
}

// Process builds the full chunk sequence for a document. Indices are
// contiguous 0..n-1 in document order.
func (p *Processor) Process(doc domain.Document, res *extract.Result) ([]domain.Chunk, error) {
	raw := p.assemble(res.Blocks)
	if len(raw) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	chunks := make([]domain.Chunk, len(raw))
	for i, rc := range raw {
		chunks[i] = domain.Chunk{
			ID:           uuid.NewString(),
			DocumentID:   doc.ID,
			Index:        i,
			Text:         rc.text,
			SemanticType: inferSemanticType(rc.hint, rc.text),
			Page:         rc.page,
			Categories:   ContentCategories(rc.text, p.categories),
			WordCount:    len(strings.Fields(rc.text)),
			Position:     float64(i) / float64(len(raw)),
		}
	}
	return chunks, nil
}

// assemble accumulates blocks into size-bounded chunks. A heading closes the
// current chunk and opens the next one; oversized blocks are split at
// sentence boundaries. Each chunk after the first starts with the tail of
// its predecessor.
func (p *Processor) assemble(blocks []extract.Block) []rawChunk {
	var out []rawChunk
	var cur strings.Builder
	curHint := domain.SemanticType("")
	curPage := 0

	flush := func() {
		text := strings.TrimSpace(cur.String())
		if text != "" {
			out = append(out, rawChunk{text: text, hint: curHint, page: curPage})
		}
		cur.Reset()
		curHint = ""
		curPage = 0
	}
	carryOverlap := func() {
		if len(out) == 0 {
			return
		}
		tail := overlapTail(out[len(out)-1].text, p.overlap)
		if tail != "" {
			cur.WriteString(tail)
			cur.WriteString(" ")
		}
	}

	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		if text == "" {
			continue
		}
		if b.Kind == domain.TypeHeading && cur.Len() > 0 {
			flush()
			carryOverlap()
		}
		if cur.Len()+len(text) > p.size && cur.Len() > 0 {
			flush()
			carryOverlap()
		}
		if curHint == "" {
			curHint = b.Kind
		}
		if curPage == 0 {
			curPage = b.Page
		}
		if len(text) > p.size {
			// Single block too large for one chunk: split at sentences.
			// Whatever is pending (the carried overlap at most) is folded in
			// so cross-boundary context is not lost.
			if pending := strings.TrimSpace(cur.String()); pending != "" {
				text = pending + " " + text
			}
			cur.Reset()
			pieces := splitBySentences(text, p.size, p.overlap)
			for i, piece := range pieces {
				if i < len(pieces)-1 {
					out = append(out, rawChunk{text: piece, hint: b.Kind, page: b.Page})
					continue
				}
				curHint = b.Kind
				curPage = b.Page
				cur.WriteString(piece)
				cur.WriteString("\n")
			}
			continue
		}
		cur.WriteString(text)
		cur.WriteString("\n")
	}
	flush()
	return out
}

// splitBySentences cuts text into pieces of at most size characters,
// breaking at sentence ends where possible and repeating the last overlap
// characters of each piece at the start of the next.
func splitBySentences(text string, size, overlap int) []string {
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{text}
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}
	var pieces []string
	var cur strings.Builder
	for _, sent := range sentences {
		if cur.Len() > 0 && cur.Len()+len(sent) > size {
			piece := strings.TrimSpace(cur.String())
			pieces = append(pieces, piece)
			cur.Reset()
			if tail := overlapTail(piece, overlap); tail != "" {
				cur.WriteString(tail)
				cur.WriteString(" ")
			}
		}
		// A single sentence longer than the target length is cut hard.
		for len(sent) > size {
			cut := strings.LastIndex(sent[:size], " ")
			if cut <= 0 {
				cut = size
			}
			pieces = append(pieces, strings.TrimSpace(sent[:cut]))
			sent = strings.TrimSpace(sent[cut:])
		}
		cur.WriteString(sent)
		cur.WriteString(" ")
	}
	if strings.TrimSpace(cur.String()) != "" {
		pieces = append(pieces, strings.TrimSpace(cur.String()))
	}
	return pieces
}

// overlapTail returns the last n characters of text, extended left to the
// nearest word boundary.
func overlapTail(text string, n int) string {
	if n <= 0 || text == "" {
		return ""
	}
	if len(text) <= n {
		return text
	}
	cut := len(text) - n
	for cut < len(text) && !utf8.RuneStart(text[cut]) {
		cut++
	}
	tail := text[cut:]
	if i := strings.IndexByte(tail, ' '); i >= 0 && i+1 < len(tail) {
		tail = tail[i+1:]
	}
	return strings.TrimSpace(tail)
}
