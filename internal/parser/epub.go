package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
)

// EPUBParser reads the spine documents of an EPUB in reading order.
type EPUBParser struct{}

func (p *EPUBParser) Parse(r io.Reader, filename string) (string, error) {
	path, _, err := spool(r, "sumzero-epub-*.epub")
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	rc, err := epub.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return "", fmt.Errorf("no rootfiles found in epub")
	}
	book := rc.Rootfiles[0]

	var docs []string
	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		f, err := ref.Item.Open()
		if err != nil {
			return "", fmt.Errorf("open spine item %s: %w", ref.Item.HREF, err)
		}
		doc, err := html.Parse(f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("parse spine item %s: %w", ref.Item.HREF, err)
		}
		if text := flattenHTML(doc); text != "" {
			docs = append(docs, text)
		}
	}
	return strings.Join(docs, "\n\n"), nil
}
