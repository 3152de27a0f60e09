package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dgallion1/sumzero/internal/chunker"
	"github.com/dgallion1/sumzero/internal/config"
)

const sampleArc = "Arc 7 Chapter 1 – Initiation\nHello.\n△▼△▼△▼△\nWorld.\nArc 7 Chapter 2 – Next\nBye."

func TestMain(m *testing.M) {
	newTokenizer = func(*slog.Logger) chunker.Tokenizer { return chunker.EstimateCounter{} }
	os.Exit(m.Run())
}

// isolateEnv clears the variables the commands read so the host
// environment cannot leak into a test.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "OPENAI_ORG", "SUMZERO_OUTPUT_DIR", "SUMZERO_STRICT",
		"SUMZERO_CACHE_PATH", "SUMZERO_DRY_RUN", "SUMZERO_HIGH_CAPACITY", "SUMZERO_TEMPERATURE",
	} {
		t.Setenv(k, "")
	}
}

func writeArc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arc7.txt")
	if err := os.WriteFile(path, []byte(sampleArc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// completionServer answers every chat completion with the prompt's first line.
func completionServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		first, _, _ := strings.Cut(req.Messages[0].Content, "\n")
		content, _ := json.Marshal("Synopsis of " + first)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":%s}}]}`, content)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{errors.New("boom"), ExitFatal},
		{&ConfigError{Err: config.ErrMissingAPIKey}, ExitConfig},
		{fmt.Errorf("wrapped: %w", &ConfigError{Err: errors.New("x")}), ExitConfig},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v): expected %d, got %d", tt.err, tt.want, got)
		}
	}
}

func TestChaptersCommand(t *testing.T) {
	isolateEnv(t)
	out, err := run(t, "chapters", "-i", writeArc(t))
	if err != nil {
		t.Fatalf("chapters: %v", err)
	}
	want := "1\tArc 7 Chapter 1 – Initiation\t(2 part(s))\n2\tArc 7 Chapter 2 – Next\t(1 part(s))\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestChaptersCommand_RequiresInput(t *testing.T) {
	isolateEnv(t)
	if _, err := run(t, "chapters"); err == nil {
		t.Fatal("expected error without -i")
	}
}

func TestDumpCommand(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	if _, err := run(t, "dump", "-i", writeArc(t), "-o", dir); err != nil {
		t.Fatalf("dump: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "Arc 7 Processed.txt"))
	if err != nil {
		t.Fatal(err)
	}
	want := "Arc 7 Chapter 1 – Initiation\nHello.\n\nChapter 1 Part 2\nWorld.\n\nArc 7 Chapter 2 – Next\nBye."
	if string(data) != want {
		t.Errorf("expected %q, got %q", want, data)
	}
}

func TestExtractCommand(t *testing.T) {
	isolateEnv(t)
	src := filepath.Join(t.TempDir(), "arc.html")
	if err := os.WriteFile(src, []byte("<html><body><p>Arc 7 Chapter 1 – A</p><p>Text.</p></body></html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := t.TempDir()

	out, err := run(t, "extract", "--dry-run", "-d", outDir, src)
	if err != nil {
		t.Fatalf("extract --dry-run: %v", err)
	}
	if !strings.Contains(out, "Would write") {
		t.Errorf("expected dry-run notice, got %q", out)
	}
	if _, err := os.Stat(filepath.Join(outDir, "arc.txt")); !os.IsNotExist(err) {
		t.Fatalf("dry run must not write, got %v", err)
	}

	if _, err := run(t, "extract", "-d", outDir, "-c", src); err != nil {
		t.Fatalf("extract: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(outDir, "arc.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Arc 7 Chapter 1 – A\nText." {
		t.Errorf("unexpected extracted text %q", data)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("expected source removed with -c, got %v", err)
	}
}

func TestExtractCommand_ReportsFailures(t *testing.T) {
	isolateEnv(t)
	_, err := run(t, "extract", filepath.Join(t.TempDir(), "missing.epub"))
	if err == nil || !strings.Contains(err.Error(), "1 of 1") {
		t.Fatalf("expected failure count, got %v", err)
	}
}

func TestSummarizeCommand_MissingKeyIsConfigError(t *testing.T) {
	isolateEnv(t)
	_, err := run(t, "summarize", "-i", writeArc(t), "-c", "1", "-o", t.TempDir())
	if ExitCode(err) != ExitConfig {
		t.Fatalf("expected config exit code, got %v", err)
	}
}

func TestSummarizeCommand_RejectsTemperature(t *testing.T) {
	isolateEnv(t)
	_, err := run(t, "summarize", "-i", writeArc(t), "-c", "1", "--api-key", "k", "-t", "2.5")
	if ExitCode(err) != ExitConfig {
		t.Fatalf("expected config exit code, got %v", err)
	}
}

func TestSummarizeCommand_Merge(t *testing.T) {
	isolateEnv(t)
	srv, calls := completionServer(t)
	t.Setenv("OPENAI_BASE_URL", srv.URL+"/")
	dir := t.TempDir()

	out, err := run(t, "summarize", "-i", writeArc(t), "-c", "2, 1", "-m", "-o", dir, "--api-key", "sk-test")
	if err != nil {
		t.Fatalf("summarize: %v\n%s", err, out)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("expected 3 completions, got %d", n)
	}
	for _, line := range []string{"Handling chapter(s): 1, 2", "Merging files...", "Merged files!", "Done!"} {
		if !strings.Contains(out, line) {
			t.Errorf("expected %q in output:\n%s", line, out)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "Arc 7 Chapter(s) 1-2 Summary.txt"))
	if err != nil {
		t.Fatal(err)
	}
	want := "Arc 7 Chapter 1 – Initiation\nSynopsis of Arc 7 Chapter 1 – Initiation\n\n\n" +
		"Chapter 1 Part 2\nSynopsis of Chapter 1 Part 2\n\n\n" +
		"Arc 7 Chapter 2 – Next\nSynopsis of Arc 7 Chapter 2 – Next"
	if string(data) != want {
		t.Errorf("expected %q, got %q", want, data)
	}
	if _, err := os.Stat(filepath.Join(dir, "temp")); !os.IsNotExist(err) {
		t.Errorf("expected temp dir removed, got %v", err)
	}
}

func TestSummarizeCommand_HighCapacityAndOpen(t *testing.T) {
	isolateEnv(t)
	srv, _ := completionServer(t)
	t.Setenv("OPENAI_BASE_URL", srv.URL+"/")
	dir := t.TempDir()

	var opened string
	openFunc = func(path string) error { opened = path; return nil }
	t.Cleanup(func() { openFunc = openPath })

	out, err := run(t, "summarize", "-i", writeArc(t), "-c", "2", "-o", dir, "--api-key", "sk-test", "--gpt4", "--open")
	if err != nil {
		t.Fatalf("summarize: %v\n%s", err, out)
	}
	if !strings.Contains(out, "very expensive") {
		t.Errorf("expected cost warning, got:\n%s", out)
	}
	if want := filepath.Join(dir, "Arc 7 Chapter 2 Summary.txt"); opened != want {
		t.Errorf("expected %s opened, got %q", want, opened)
	}
}

func TestSummarizeCommand_UnknownChapterFails(t *testing.T) {
	isolateEnv(t)
	srv, calls := completionServer(t)
	t.Setenv("OPENAI_BASE_URL", srv.URL+"/")
	dir := t.TempDir()

	_, err := run(t, "summarize", "-i", writeArc(t), "-c", "2,9", "-o", dir, "--api-key", "sk-test")
	if err == nil || !strings.Contains(err.Error(), "chapter 9") {
		t.Fatalf("expected chapter 9 failure, got %v", err)
	}
	if ExitCode(err) != ExitFatal {
		t.Errorf("expected fatal exit code, got %d", ExitCode(err))
	}
	if calls.Load() != 1 {
		t.Errorf("expected chapter 2 still summarized, got %d calls", calls.Load())
	}
	if _, err := os.Stat(filepath.Join(dir, "Arc 7 Chapter 2 Summary.txt")); err != nil {
		t.Errorf("expected chapter 2 artifact, got %v", err)
	}
}

func TestSummarizeCommand_CacheAvoidsSecondCall(t *testing.T) {
	isolateEnv(t)
	srv, calls := completionServer(t)
	t.Setenv("OPENAI_BASE_URL", srv.URL+"/")
	cache := filepath.Join(t.TempDir(), "cache.db")
	input := writeArc(t)

	for i := 0; i < 2; i++ {
		if _, err := run(t, "summarize", "-i", input, "-c", "2", "-o", t.TempDir(), "--api-key", "sk-test", "--cache", cache); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected the second run served from cache, got %d calls", n)
	}
}
