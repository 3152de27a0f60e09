package arc

import (
	"regexp"
	"strconv"
)

// Scene-break glyph sequences. Both are consumed when splitting.
var SceneBreaks = []string{
	"△▼△▼△▼△",
	"※　※　※　※　※　※　※　※　※　※　※　※　※",
}

const (
	chapterKeyword = "Chapter"
	titleSeparator = " – "
	completeMarker = " ― Complete"
)

// word matches a chapter id token. Letters and digits in any script.
const word = `[\p{L}\p{N}_]+`

var (
	arcNumberPattern      = regexp.MustCompile(`Arc (\d+)`)
	trailingMatterPattern = regexp.MustCompile(`(?is)Other Volumes.*`)
	spaceRunPattern       = regexp.MustCompile(` +`)
	newlineRunPattern     = regexp.MustCompile(`\n+`)
	chapterIDPattern      = regexp.MustCompile(`Chapter (` + word + `)`)
	partMarkerPattern     = regexp.MustCompile(`\bPart\b`)

	// Decorative caption lines stripped from every block, to end of line.
	captionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)Illustration from Volume.*$`),
		regexp.MustCompile(`(?im)Character Pages.*$`),
		regexp.MustCompile(`(?im)Web Novel Volume.*$`),
	}
)

// Patterns holds the expressions that depend on the arc number.
type Patterns struct {
	Arc int

	// ChapterOne finds the canonical start of the arc body.
	ChapterOne *regexp.Regexp
	// ChapterHeader matches a chapter header at the start of a line and
	// captures the chapter id.
	ChapterHeader *regexp.Regexp
	// CompleteTrailer captures a chapter header line followed by text up to
	// and including the first " ― Complete" marker.
	CompleteTrailer *regexp.Regexp
}

// PatternsFor compiles the arc-specific patterns.
func PatternsFor(arcNumber int) Patterns {
	n := regexp.QuoteMeta(strconv.Itoa(arcNumber))
	return Patterns{
		Arc:             arcNumber,
		ChapterOne:      regexp.MustCompile(`(?i)Arc ` + n + ` Chapter 1 –`),
		ChapterHeader:   regexp.MustCompile(`(?im)^Arc ` + n + ` Chapter (` + word + `)`),
		CompleteTrailer: regexp.MustCompile(`(?is)^(Arc ` + n + ` Chapter ` + word + ` – [^\n\r]*\n?)(.*?` + completeMarker + `\n?)`),
	}
}
