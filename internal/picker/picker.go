// Package picker chooses which chapters of an arc to summarize.
package picker

import (
	"context"
	"errors"
	"strings"

	"github.com/dgallion1/sumzero/internal/arc"
)

var (
	// ErrNoSelection is returned when no chapter was chosen.
	ErrNoSelection = errors.New("no chapters selected")
	// ErrAborted is returned when the user quits the interactive picker.
	ErrAborted = errors.New("chapter selection aborted")
)

// Choice is one selectable chapter.
type Choice struct {
	ID    string
	Label string
}

// ListChoices returns one choice per chapter in document order, labelled
// with the chapter's header line.
func ListChoices(doc *arc.Document) []Choice {
	chapters := doc.Chapters()
	out := make([]Choice, 0, len(chapters))
	for _, ch := range chapters {
		out = append(out, Choice{ID: ch.ID, Label: ch.Header})
	}
	return out
}

// Selector picks chapter ids from the available choices.
type Selector interface {
	Select(ctx context.Context, choices []Choice) ([]string, error)
}

// Static selects a fixed list of ids, as given on the command line.
type Static struct {
	IDs []string
}

// ParseIDs splits a comma-separated chapter list, ignoring whitespace.
func ParseIDs(s string) []string {
	s = strings.Join(strings.Fields(s), "")
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Select returns the configured ids as given. Ids that are not chapters of
// the arc are kept so the run can report them as not found.
func (s Static) Select(_ context.Context, _ []Choice) ([]string, error) {
	if len(s.IDs) == 0 {
		return nil, ErrNoSelection
	}
	return s.IDs, nil
}

// All selects every chapter.
type All struct{}

func (All) Select(_ context.Context, choices []Choice) ([]string, error) {
	if len(choices) == 0 {
		return nil, ErrNoSelection
	}
	ids := make([]string, len(choices))
	for i, c := range choices {
		ids[i] = c.ID
	}
	return ids, nil
}
