package chunker

import (
	"os"
	"testing"
)

// Loading the encoding needs the BPE ranks; run only when they are cached
// locally so the suite stays offline.
func TestTiktokenCounter_Cl100k(t *testing.T) {
	if os.Getenv("TIKTOKEN_CACHE_DIR") == "" {
		t.Skip("TIKTOKEN_CACHE_DIR not set")
	}
	c, err := NewTiktokenCounter(TokenizerModel)
	if err != nil {
		t.Fatalf("NewTiktokenCounter: %v", err)
	}
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"hello world", 2},
		{"tiktoken is great!", 6},
	}
	for _, tt := range tests {
		if got := c.Count(tt.text); got != tt.want {
			t.Errorf("Count(%q): expected %d, got %d", tt.text, tt.want, got)
		}
	}
}
