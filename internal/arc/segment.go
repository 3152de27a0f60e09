package arc

import (
	"cmp"
	"slices"
	"strings"
)

// cut is a split point. Header cuts are zero-width; glyph cuts remove
// [start, end).
type cut struct {
	start, end int
}

// Split breaks normalized text into raw pieces at chapter-header lines and
// scene-break glyphs. Headers stay with the piece they open, glyphs are
// dropped, empty pieces are omitted. Joining the pieces gives back the text
// minus the glyphs.
func Split(n Normalized) []string {
	text := n.Text
	p := PatternsFor(n.Arc)

	var cuts []cut
	for _, loc := range p.ChapterHeader.FindAllStringIndex(text, -1) {
		cuts = append(cuts, cut{loc[0], loc[0]})
	}
	for _, glyph := range SceneBreaks {
		for off := 0; ; {
			i := strings.Index(text[off:], glyph)
			if i < 0 {
				break
			}
			start := off + i
			cuts = append(cuts, cut{start, start + len(glyph)})
			off = start + len(glyph)
		}
	}
	slices.SortFunc(cuts, func(a, b cut) int { return cmp.Compare(a.start, b.start) })

	var pieces []string
	prev := 0
	for _, c := range cuts {
		if c.start < prev {
			continue
		}
		if c.start > prev {
			pieces = append(pieces, text[prev:c.start])
		}
		prev = c.end
	}
	if prev < len(text) {
		pieces = append(pieces, text[prev:])
	}
	return pieces
}

// Segment splits normalized text and cleans each piece: caption lines are
// stripped and whitespace collapsed. Pieces left empty are dropped.
func Segment(n Normalized) []string {
	raw := Split(n)
	blocks := make([]string, 0, len(raw))
	for _, piece := range raw {
		if b := cleanBlock(piece); b != "" {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func cleanBlock(s string) string {
	for _, p := range captionPatterns {
		s = p.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(collapseWhitespace(strings.TrimSpace(s)))
}
