package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/sumzero/internal/summarize"
)

func syn(header, text string) summarize.Synopsis {
	return summarize.Synopsis{HeaderLine: header, Text: text}
}

func TestIncrementalSink_WritesTrimmedRecords(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{Dir: dir, Mode: ModeIncremental}

	sink, err := w.Open(7, "1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := sink.Append(syn("Arc 7 Chapter 1 – Initiation", "First.")); err != nil {
		t.Fatal(err)
	}

	// The first record is on disk before the chapter finishes.
	data, err := os.ReadFile(sink.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Arc 7 Chapter 1 – Initiation\nFirst.\n\n\n" {
		t.Errorf("expected record flushed, got %q", data)
	}

	if err := sink.Append(syn("Chapter 1 Part 2", "Second.")); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := ReadChapter(dir, 7, "1")
	if err != nil {
		t.Fatal(err)
	}
	want := "Arc 7 Chapter 1 – Initiation\nFirst.\n\n\nChapter 1 Part 2\nSecond."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if filepath.Base(sink.Path()) != "Arc 7 Chapter 1 Summary.txt" {
		t.Errorf("unexpected filename %s", sink.Path())
	}
}

func TestIncrementalSink_AbortKeepsWrittenBlocks(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{Dir: dir, Mode: ModeIncremental}
	sink, err := w.Open(2, "5")
	if err != nil {
		t.Fatal(err)
	}
	sink.Append(syn("Arc 2 Chapter 5 – X", "Kept."))
	if err := sink.Abort(); err != nil {
		t.Fatal(err)
	}
	got, err := ReadChapter(dir, 2, "5")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Arc 2 Chapter 5 – X\nKept." {
		t.Errorf("expected partial chapter kept, got %q", got)
	}
}

func TestBatchedSink_WritesOnceAndAbortDiscards(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{Dir: dir, Mode: ModeBatched}

	sink, err := w.Open(3, "4")
	if err != nil {
		t.Fatal(err)
	}
	sink.Append(syn("Arc 3 Chapter 4 – Y", "One."))
	if _, err := os.Stat(sink.Path()); !os.IsNotExist(err) {
		t.Fatalf("expected nothing on disk before Close, got %v", err)
	}
	sink.Append(syn("Chapter 4 Part 2", "Two."))
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	got, _ := ReadChapter(dir, 3, "4")
	if got != "Arc 3 Chapter 4 – Y\nOne.\n\n\nChapter 4 Part 2\nTwo." {
		t.Errorf("unexpected batched artifact %q", got)
	}

	// A failed rerun leaves the previous artifact untouched.
	again, _ := w.Open(3, "4")
	again.Append(syn("Arc 3 Chapter 4 – Y", "Partial."))
	if err := again.Abort(); err != nil {
		t.Fatal(err)
	}
	if after, _ := ReadChapter(dir, 3, "4"); after != got {
		t.Errorf("expected previous artifact kept, got %q", after)
	}
}

func TestFormatChapterRange(t *testing.T) {
	tests := []struct {
		ids  []string
		want string
	}{
		{[]string{"3", "1", "2"}, "1-3"},
		{[]string{"1", "3"}, "1...3"},
		{[]string{"7"}, "7-7"},
		{[]string{"10", "9", "11"}, "9-11"},
		{[]string{"2", "Interlude"}, "2...Interlude"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := FormatChapterRange(tt.ids); got != tt.want {
			t.Errorf("FormatChapterRange(%v): expected %q, got %q", tt.ids, tt.want, got)
		}
	}
}

func TestMerge(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	w := &Writer{Dir: src, Mode: ModeBatched}
	for _, id := range []string{"1", "2"} {
		sink, _ := w.Open(4, id)
		sink.Append(syn("Arc 4 Chapter "+id+" – T", "Summary "+id+"."))
		if err := sink.Close(); err != nil {
			t.Fatal(err)
		}
	}

	path, err := Merge(src, dst, 4, []string{"1", "2"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if filepath.Base(path) != "Arc 4 Chapter(s) 1-2 Summary.txt" {
		t.Errorf("unexpected merged filename %s", path)
	}
	data, _ := os.ReadFile(path)
	want := "Arc 4 Chapter 1 – T\nSummary 1.\n\n\nArc 4 Chapter 2 – T\nSummary 2."
	if string(data) != want {
		t.Errorf("expected %q, got %q", want, data)
	}

	if _, err := Merge(src, dst, 4, []string{"9"}); err == nil {
		t.Error("expected error merging a missing chapter")
	}
}

func TestDump(t *testing.T) {
	dir := t.TempDir()
	path, err := Dump(dir, 7, "a\n\nb")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "Arc 7 Processed.txt" {
		t.Errorf("unexpected dump name %s", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "a\n\nb" {
		t.Errorf("unexpected dump contents %q", data)
	}
}
