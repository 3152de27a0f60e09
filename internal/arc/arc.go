// Package arc turns the plain-text export of one web-novel arc into an
// ordered list of titled blocks, one per chapter part.
package arc

import "strings"

// Block is the unit of work sent to the model: one part of one chapter.
type Block struct {
	Ordinal    int    // Zero-based position in document order
	ChapterID  string // Word token following "Chapter", e.g. "7" or "Interlude"
	Part       int    // 1 for the chapter-opening block, then 2, 3, ...
	HeaderLine string // Original chapter header or synthesized "Chapter C Part P"
	Body       string // Remaining normalized text (may be empty)
}

// Text renders the block the way it is sized, sent and indexed.
func (b Block) Text() string {
	if b.Body == "" {
		return b.HeaderLine
	}
	return b.HeaderLine + "\n" + b.Body
}

// Opening reports whether the block starts a chapter.
func (b Block) Opening() bool { return b.Part == 1 }

// Document is a parsed arc. Blocks are immutable once titled.
type Document struct {
	Arc    int
	Blocks []Block
}

// Chapter is a derived view of one chapter-opening block.
type Chapter struct {
	ID     string `json:"id"`
	Header string `json:"header"`
	Parts  int    `json:"parts"`
}

// Parse runs normalize, segment and title over raw arc text.
func Parse(raw string) (*Document, error) {
	n, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	return &Document{
		Arc:    n.Arc,
		Blocks: Title(n, Segment(n)),
	}, nil
}

// ChapterHeaders returns the distinct chapter-opening header lines in
// document order.
func (d *Document) ChapterHeaders() []string {
	seen := make(map[string]bool)
	var headers []string
	for _, b := range d.Blocks {
		if !b.Opening() || seen[b.HeaderLine] {
			continue
		}
		seen[b.HeaderLine] = true
		headers = append(headers, b.HeaderLine)
	}
	return headers
}

// Chapters returns one entry per chapter id in document order, with the
// number of parts each chapter was split into.
func (d *Document) Chapters() []Chapter {
	var chapters []Chapter
	pos := make(map[string]int)
	for _, b := range d.Blocks {
		i, ok := pos[b.ChapterID]
		if !ok {
			pos[b.ChapterID] = len(chapters)
			chapters = append(chapters, Chapter{ID: b.ChapterID, Header: b.HeaderLine})
			i = len(chapters) - 1
		}
		if b.Part > chapters[i].Parts {
			chapters[i].Parts = b.Part
		}
	}
	return chapters
}

// Text renders the whole processed document, blocks separated by a blank
// line.
func (d *Document) Text() string {
	parts := make([]string, len(d.Blocks))
	for i, b := range d.Blocks {
		parts[i] = b.Text()
	}
	return strings.Join(parts, "\n\n")
}
