package chunker

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenizerModel is the model whose encoding is used for sizing.
const TokenizerModel = "gpt-3.5-turbo"

// Tokenizer counts tokens in text. Implementations must be deterministic.
type Tokenizer interface {
	Count(text string) int
}

// TiktokenCounter counts BPE tokens with a tiktoken encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the encoding for model. Loading fetches the BPE
// ranks on first use unless they are cached locally (TIKTOKEN_CACHE_DIR).
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding for %s: %w", model, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// NewTokenizer returns the tiktoken counter for TokenizerModel, falling
// back to EstimateCounter when the encoding cannot be loaded.
func NewTokenizer(log *slog.Logger) Tokenizer {
	tc, err := NewTiktokenCounter(TokenizerModel)
	if err != nil {
		log.Warn("tokenizer unavailable, using word estimate", "error", err)
		return EstimateCounter{}
	}
	return tc
}

// EstimateCounter approximates token counts from word counts. Used when the
// BPE ranks are unavailable.
type EstimateCounter struct{}

func (EstimateCounter) Count(text string) int { return EstimateTokens(text) }

// EstimateTokens gives a rough token count at ~1.33 tokens per word.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
