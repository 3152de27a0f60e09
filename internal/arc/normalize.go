package arc

import (
	"strconv"
	"strings"
)

// Normalized is arc text with front matter, trailing matter and redundant
// whitespace removed.
type Normalized struct {
	Arc  int
	Text string
}

// Normalize prepares raw arc text for segmentation. It is pure and
// idempotent.
func Normalize(raw string) (Normalized, error) {
	m := arcNumberPattern.FindStringSubmatch(raw)
	if m == nil {
		return Normalized{}, &StructureError{Reason: "no arc number found"}
	}
	arcNumber, err := strconv.Atoi(m[1])
	if err != nil {
		return Normalized{}, &StructureError{Reason: "arc number out of range: " + m[1]}
	}
	p := PatternsFor(arcNumber)

	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = collapseWhitespace(text)

	// A table of contents repeats the chapter-1 header; the last occurrence
	// is where the body starts.
	starts := p.ChapterOne.FindAllStringIndex(text, -1)
	if len(starts) == 0 {
		return Normalized{}, &StructureError{
			Reason: "missing header \"Arc " + m[1] + " Chapter 1 –\"",
		}
	}
	text = text[starts[len(starts)-1][0]:]

	if loc := trailingMatterPattern.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}

	return Normalized{Arc: arcNumber, Text: strings.TrimSpace(text)}, nil
}

func collapseWhitespace(s string) string {
	s = spaceRunPattern.ReplaceAllString(s, " ")
	return newlineRunPattern.ReplaceAllString(s, "\n")
}
