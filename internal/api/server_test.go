package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/sumzero/internal/chunker"
	"github.com/dgallion1/sumzero/internal/config"
	"github.com/dgallion1/sumzero/internal/pipeline"
	"github.com/dgallion1/sumzero/internal/summarize"
)

const testKey = "test-key"

const sampleArc = "Arc 7 Chapter 1 – Initiation\nHello.\n△▼△▼△▼△\nWorld.\nArc 7 Chapter 2 – Next\nBye."

type echoCompleter struct {
	mu    sync.Mutex
	calls int
}

func (c *echoCompleter) Complete(_ context.Context, req summarize.CompletionRequest) (string, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	first, _, _ := strings.Cut(req.Prompt, "\n")
	return "Synopsis of " + first, nil
}

func newTestServer(t *testing.T) (*Server, *echoCompleter) {
	t.Helper()
	cfg := config.Config{
		SumzeroAPIKey:  testKey,
		StandardModel:  "std-model",
		LargeModel:     "large-model",
		RetryBudget:    5 * time.Second,
		Incremental:    true,
		ChapterWorkers: 1,
		OutputDir:      t.TempDir(),
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	completer := &echoCompleter{}
	tok := chunker.EstimateCounter{}

	orch := pipeline.NewOrchestrator(cfg, completer, nil, tok, log)
	ctx, cancel := context.WithCancel(context.Background())
	orch.Start(ctx)
	t.Cleanup(func() {
		cancel()
		orch.Stop()
	})

	return NewServer(orch, summarize.NewStats(time.Hour), tok, log, cfg), completer
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, filename, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(body))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/arcs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func uploadSample(t *testing.T, s *Server) string {
	t.Helper()
	rec := do(t, s, uploadRequest(t, "arc7.txt", sampleArc))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	id, _ := out["arc_id"].(string)
	if id == "" {
		t.Fatalf("expected arc_id in %v", out)
	}
	return id
}

func TestHealthIsPublic(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != `{"status":"ok"}` {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", rec.Code)
	}
}

func TestUploadArc(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, uploadRequest(t, "../arc7.txt", sampleArc))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out["arc"] != float64(7) {
		t.Errorf("expected arc 7, got %v", out["arc"])
	}
	if out["blocks"] != float64(3) {
		t.Errorf("expected 3 blocks, got %v", out["blocks"])
	}
	if out["filename"] != "arc7.txt" {
		t.Errorf("expected sanitized filename, got %v", out["filename"])
	}
	chapters, _ := out["chapters"].([]any)
	if len(chapters) != 2 {
		t.Errorf("expected 2 chapters, got %v", out["chapters"])
	}
}

func TestUploadArc_Rejections(t *testing.T) {
	s, _ := newTestServer(t)
	tests := []struct {
		name     string
		filename string
		body     string
		code     int
	}{
		{"unsupported extension", "arc.exe", sampleArc, http.StatusBadRequest},
		{"no chapter header", "arc.txt", "just some prose\nwith no header", http.StatusUnprocessableEntity},
		{"too large", "arc.txt", strings.Repeat("x", 1<<20+10), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, uploadRequest(t, tt.filename, tt.body))
			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestListChapters(t *testing.T) {
	s, _ := newTestServer(t)
	id := uploadSample(t, s)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/arcs/"+id+"/chapters", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Arc 7 Chapter 2 – Next") {
		t.Errorf("expected chapter header in %s", rec.Body.String())
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/arcs/nope/chapters", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown arc, got %d", rec.Code)
	}
}

func TestPlan(t *testing.T) {
	s, completer := newTestServer(t)
	id := uploadSample(t, s)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/arcs/"+id+"/plan?chapter=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Blocks []blockPlan `json:"blocks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Blocks) != 2 {
		t.Fatalf("expected 2 blocks for chapter 1, got %d", len(out.Blocks))
	}
	for _, b := range out.Blocks {
		if b.Plan == nil || b.Plan.Model != "std-model" {
			t.Errorf("expected standard tier for block %d, got %+v", b.Ordinal, b)
		}
	}
	if completer.calls != 0 {
		t.Errorf("plan must not call the model, got %d calls", completer.calls)
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/arcs/"+id+"/plan?chapter=9", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown chapter, got %d", rec.Code)
	}
}

func waitForJob(t *testing.T, s *Server, jobID string) pipeline.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/jobs/"+jobID+"/status", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 from status, got %d", rec.Code)
		}
		var snap pipeline.JobSnapshot
		if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
			t.Fatal(err)
		}
		switch snap.Status {
		case pipeline.StatusCompleted, pipeline.StatusPartial, pipeline.StatusFailed:
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return pipeline.JobSnapshot{}
}

func TestSummariesLifecycle(t *testing.T) {
	s, completer := newTestServer(t)
	id := uploadSample(t, s)

	body := strings.NewReader(`{"chapters":["2","1"],"temperature":0.5}`)
	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/arcs/"+id+"/summaries", body))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	jobID, _ := out["job_id"].(string)
	if out["poll_url"] != "/api/jobs/"+jobID+"/status" {
		t.Errorf("unexpected poll_url %v", out["poll_url"])
	}

	snap := waitForJob(t, s, jobID)
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Options.Temperature != 0.5 {
		t.Errorf("expected temperature 0.5, got %v", snap.Options.Temperature)
	}
	if completer.calls != 3 {
		t.Errorf("expected 3 completions, got %d", completer.calls)
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/jobs/"+jobID+"/chapters/2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "Arc 7 Chapter 2 – Next\nSynopsis of Arc 7 Chapter 2 – Next" {
		t.Errorf("unexpected chapter summary %q", rec.Body.String())
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/jobs/"+jobID+"/summary", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	merged := rec.Body.String()
	if !strings.HasPrefix(merged, "Arc 7 Chapter 1 – Initiation\n") || !strings.HasSuffix(merged, "Synopsis of Arc 7 Chapter 2 – Next") {
		t.Errorf("unexpected merged summary %q", merged)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "Arc 7 Chapter(s) 1-2 Summary.txt") {
		t.Errorf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
}

func TestSummaries_Validation(t *testing.T) {
	s, _ := newTestServer(t)
	id := uploadSample(t, s)

	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/arcs/"+id+"/summaries", strings.NewReader(`{"temperature":3}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for temperature out of range, got %d", rec.Code)
	}
	rec = do(t, s, httptest.NewRequest(http.MethodPost, "/api/arcs/"+id+"/summaries", strings.NewReader(`{not json`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad json, got %d", rec.Code)
	}
	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/jobs/missing/status", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown job, got %d", rec.Code)
	}
}

func TestLLMStats(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	out := decode(t, rec)
	models, _ := out["models"].(map[string]any)
	if models["large"] != "large-model" {
		t.Errorf("unexpected models %v", out["models"])
	}

	s.stats = nil
	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without stats, got %d", rec.Code)
	}
}
