package arc

import (
	"fmt"
	"strings"
)

// titleState is the fold accumulator: the chapter in effect and the last
// part number handed out.
type titleState struct {
	chapter string
	part    int
}

// Title assigns chapter ids, part numbers and header lines to segmented
// blocks in one left-to-right pass.
func Title(n Normalized, segments []string) []Block {
	p := PatternsFor(n.Arc)
	st := titleState{chapter: "0", part: 1}

	blocks := make([]Block, 0, len(segments))
	for i, seg := range segments {
		var b Block
		st, b = st.next(p, seg)
		b.Ordinal = i
		blocks = append(blocks, b)
	}
	return blocks
}

func (s titleState) next(p Patterns, text string) (titleState, Block) {
	first, rest := splitFirstLine(text)
	// Only the part before the title separator can mark a part, so a title
	// such as "Part of Me" still opens a chapter.
	head, _, _ := strings.Cut(first, titleSeparator)
	hasPart := partMarkerPattern.MatchString(head)

	switch {
	case !hasPart && p.ChapterHeader.MatchString(first):
		s.chapter = p.ChapterHeader.FindStringSubmatch(first)[1]
		s.part = 1
		text = p.CompleteTrailer.ReplaceAllString(text, "$1")
		first, rest = splitFirstLine(text)

	case hasPart && chapterIDPattern.MatchString(head):
		// Explicit part header in the source; keep it.
		s.part++

	default:
		s.part++
		return s, Block{
			ChapterID:  s.chapter,
			Part:       s.part,
			HeaderLine: fmt.Sprintf("Chapter %s Part %d", s.chapter, s.part),
			Body:       text,
		}
	}

	return s, Block{
		ChapterID:  s.chapter,
		Part:       s.part,
		HeaderLine: first,
		Body:       strings.TrimSpace(rest),
	}
}

func splitFirstLine(s string) (string, string) {
	first, rest, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(first), rest
}
