package chunker

import (
	"fmt"

	"github.com/dgallion1/sumzero/internal/arc"
)

// Tier names.
const (
	TierStandard = "standard"
	TierLarge    = "large"
)

// Tier is a model configuration with a context ceiling (exclusive) and an
// output budget.
type Tier struct {
	Name            string
	Model           string
	Ceiling         int
	MaxOutputTokens int
	HighCapacity    bool // Only offered when high-capacity mode is on
}

// DefaultTiers returns the tier table in match order.
func DefaultTiers(standardModel, largeModel string) []Tier {
	return []Tier{
		{Name: TierLarge, Model: largeModel, Ceiling: 124000, MaxOutputTokens: 4000, HighCapacity: true},
		{Name: TierStandard, Model: standardModel, Ceiling: 14385, MaxOutputTokens: 2000},
	}
}

// Plan is the sizing decision for one block.
type Plan struct {
	BlockOrdinal    int    `json:"block"`
	Tier            string `json:"tier"`
	Model           string `json:"model"`
	TokenCount      int    `json:"tokens"`
	MaxOutputTokens int    `json:"max_output_tokens"`
}

// ChunkTooLargeError means no enabled tier can take the block.
type ChunkTooLargeError struct {
	Ordinal int
	Tokens  int
}

func (e *ChunkTooLargeError) Error() string {
	return fmt.Sprintf("block %d is too large: %d tokens", e.Ordinal, e.Tokens)
}

// Sizer picks a tier for each block.
type Sizer struct {
	tok          Tokenizer
	suffix       string
	tiers        []Tier
	highCapacity bool
}

// NewSizer creates a sizer. suffix is the instruction text appended to every
// block before it is sent, and counts against the ceiling.
func NewSizer(tok Tokenizer, suffix string, tiers []Tier, highCapacity bool) *Sizer {
	return &Sizer{tok: tok, suffix: suffix, tiers: tiers, highCapacity: highCapacity}
}

// HighCapacity reports whether the large tier is enabled.
func (s *Sizer) HighCapacity() bool { return s.highCapacity }

// Count returns the token count the sizer uses for a block.
func (s *Sizer) Count(b arc.Block) int {
	return s.tok.Count(b.Text() + s.suffix)
}

// Plan sizes a block. The first enabled tier whose ceiling exceeds the token
// count wins.
func (s *Sizer) Plan(b arc.Block) (Plan, error) {
	tokens := s.Count(b)
	for _, t := range s.tiers {
		if t.HighCapacity && !s.highCapacity {
			continue
		}
		if tokens < t.Ceiling {
			return Plan{
				BlockOrdinal:    b.Ordinal,
				Tier:            t.Name,
				Model:           t.Model,
				TokenCount:      tokens,
				MaxOutputTokens: t.MaxOutputTokens,
			}, nil
		}
	}
	return Plan{}, &ChunkTooLargeError{Ordinal: b.Ordinal, Tokens: tokens}
}
