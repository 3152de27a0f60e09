package cli

import (
	"fmt"

	"github.com/dgallion1/sumzero/internal/arc"
	"github.com/dgallion1/sumzero/internal/config"
	"github.com/dgallion1/sumzero/internal/parser"
)

// loadArc reads a source file of any supported format and parses it.
func loadArc(path string, cfg config.Config) (*arc.Document, error) {
	text, err := parser.ReadFile(path, parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext})
	if err != nil {
		return nil, err
	}
	doc, err := arc.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
