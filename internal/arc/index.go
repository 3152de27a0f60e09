package arc

import "strings"

// ChapterIndex returns the ordinals of the blocks belonging to a chapter,
// in document order. A block belongs to chapter id when its text contains
// "Chapter {id} "; the trailing space keeps "1" from matching "10".
func ChapterIndex(blocks []Block, chapterID string) ([]int, error) {
	needle := chapterKeyword + " " + chapterID + " "
	var ordinals []int
	for _, b := range blocks {
		if strings.Contains(b.Text(), needle) {
			ordinals = append(ordinals, b.Ordinal)
		}
	}
	if len(ordinals) == 0 {
		return nil, &ChapterNotFoundError{ChapterID: chapterID}
	}
	return ordinals, nil
}

// ChapterIDFromHeader extracts the chapter id from a header line, or ""
// when the line carries none.
func ChapterIDFromHeader(line string) string {
	if m := chapterIDPattern.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}
