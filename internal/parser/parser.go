// Package parser turns source containers (EPUB, HTML, Markdown, DOCX, PDF,
// plain text) into the UTF-8 text the arc pipeline consumes.
package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Parser converts raw container bytes into plain text.
type Parser interface {
	Parse(r io.Reader, filename string) (string, error)
}

// Options tune format-specific behavior.
type Options struct {
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions this tool can read.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".xhtml":    true,
	".epub":     true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm", ".xhtml":
		return &HTMLParser{}, nil
	case ".epub":
		return &EPUBParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ReadFile parses the file at path with the parser for its extension.
func ReadFile(path string, opts Options) (string, error) {
	p, err := ForFile(path, opts)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	text, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return text, nil
}

// TextFilename is the name of the extracted text file for a source.
func TextFilename(source string) string {
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".txt"
}

// ExtractFile writes the text of a container file to outDir (the source's
// directory when empty) and returns the new path. With deleteSource the
// container is removed after a successful write.
func ExtractFile(path, outDir string, deleteSource bool, opts Options) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		return "", fmt.Errorf("%s is already plain text", filepath.Base(path))
	}
	text, err := ReadFile(path, opts)
	if err != nil {
		return "", err
	}
	if outDir == "" {
		outDir = filepath.Dir(path)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	dst := filepath.Join(outDir, TextFilename(path))
	if err := os.WriteFile(dst, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	if deleteSource {
		if err := os.Remove(path); err != nil {
			return dst, fmt.Errorf("remove source: %w", err)
		}
	}
	return dst, nil
}

// spool copies r into a temp file for libraries that need random access.
// The caller removes the returned path.
func spool(r io.Reader, pattern string) (string, int64, error) {
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	size, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("write temp file: %w", err)
	}
	return tmp.Name(), size, nil
}
