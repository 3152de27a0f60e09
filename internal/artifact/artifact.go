// Package artifact writes chapter summary files, merged summaries and
// processed-text dumps.
package artifact

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/sumzero/internal/summarize"
)

// recordSeparator goes after every record: two blank lines.
const recordSeparator = "\n\n\n"

// Mode selects when records reach disk.
type Mode int

const (
	// ModeIncremental appends and syncs each record as it is produced.
	ModeIncremental Mode = iota
	// ModeBatched keeps records in memory and writes the chapter once.
	ModeBatched
)

func (m Mode) String() string {
	if m == ModeBatched {
		return "batched"
	}
	return "incremental"
}

// ChapterFilename is the artifact name for one chapter.
func ChapterFilename(arcNumber int, chapterID string) string {
	return fmt.Sprintf("Arc %d Chapter %s Summary.txt", arcNumber, chapterID)
}

// Sink receives the synopses of one chapter in order.
type Sink interface {
	Append(s summarize.Synopsis) error
	// Close finalizes a complete chapter.
	Close() error
	// Abort finalizes after a failure. Incremental sinks keep what was
	// written; batched sinks discard it.
	Abort() error
	Path() string
}

// Writer opens chapter sinks under a directory.
type Writer struct {
	Dir  string
	Mode Mode
}

// Open starts a chapter artifact. In incremental mode any previous file is
// truncated immediately.
func (w *Writer) Open(arcNumber int, chapterID string) (Sink, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(w.Dir, ChapterFilename(arcNumber, chapterID))
	if w.Mode == ModeBatched {
		return &batchedSink{path: path}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return &incrementalSink{path: path, f: f}, nil
}

func formatRecord(s summarize.Synopsis) string {
	return s.HeaderLine + "\n" + s.Text + recordSeparator
}

type incrementalSink struct {
	path string
	f    *os.File
}

func (s *incrementalSink) Path() string { return s.path }

func (s *incrementalSink) Append(syn summarize.Synopsis) error {
	if _, err := s.f.WriteString(formatRecord(syn)); err != nil {
		return fmt.Errorf("append to %s: %w", s.path, err)
	}
	return s.f.Sync()
}

func (s *incrementalSink) Close() error {
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}
	return trimFile(s.path)
}

func (s *incrementalSink) Abort() error { return s.Close() }

type batchedSink struct {
	path string
	buf  bytes.Buffer
}

func (s *batchedSink) Path() string { return s.path }

func (s *batchedSink) Append(syn summarize.Synopsis) error {
	s.buf.WriteString(formatRecord(syn))
	return nil
}

func (s *batchedSink) Close() error {
	return writeFileAtomic(s.path, bytes.TrimSpace(s.buf.Bytes()))
}

func (s *batchedSink) Abort() error {
	s.buf.Reset()
	return nil
}

func trimFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return writeFileAtomic(path, bytes.TrimSpace(data))
}

// writeFileAtomic writes through a temp file in the same directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// DumpFilename is the name of the processed-text dump.
func DumpFilename(arcNumber int) string {
	return fmt.Sprintf("Arc %d Processed.txt", arcNumber)
}

// Dump writes the processed text of an arc (blocks separated by a blank
// line) and returns the file path.
func Dump(dir string, arcNumber int, text string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, DumpFilename(arcNumber))
	if err := writeFileAtomic(path, []byte(text)); err != nil {
		return "", err
	}
	return path, nil
}

// ReadChapter returns the contents of a finished chapter artifact.
func ReadChapter(dir string, arcNumber int, chapterID string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, ChapterFilename(arcNumber, chapterID)))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
