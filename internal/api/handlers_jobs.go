package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/sumzero/internal/artifact"
	"github.com/dgallion1/sumzero/internal/pipeline"
)

type summaryRequest struct {
	Chapters     []string `json:"chapters"`
	HighCapacity bool     `json:"high_capacity"`
	Temperature  *float64 `json:"temperature"`
	DryRun       bool     `json:"dry_run"`
	Strict       bool     `json:"strict"`
}

func (s *Server) handleSubmitSummaries(w http.ResponseWriter, r *http.Request) {
	entry := s.lookupArc(w, r)
	if entry == nil {
		return
	}

	var req summaryRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	chapters := req.Chapters
	if len(chapters) == 0 {
		for _, ch := range entry.Doc.Chapters() {
			chapters = append(chapters, ch.ID)
		}
	}
	temperature := s.cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	if temperature < 0 || temperature > 2 {
		jsonError(w, "temperature must be between 0 and 2", http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(entry.ID, entry.Filename, entry.Doc, chapters, pipeline.JobOptions{
		HighCapacity: req.HighCapacity || s.cfg.HighCapacity,
		Temperature:  temperature,
		DryRun:       req.DryRun || s.cfg.DryRun,
		Strict:       req.Strict || s.cfg.Strict,
	})
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"arc_id":   job.ArcID,
		"chapters": job.Chapters,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/jobs/%s/status", job.ID),
	})
}

// lookupJob writes a 404 and returns nil when the job is unknown.
func (s *Server) lookupJob(w http.ResponseWriter, r *http.Request) *pipeline.Job {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
	}
	return job
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.lookupJob(w, r)
	if job == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleChapterSummary(w http.ResponseWriter, r *http.Request) {
	job := s.lookupJob(w, r)
	if job == nil {
		return
	}
	chapterID := chi.URLParam(r, "chapterID")
	text, err := artifact.ReadChapter(job.OutputDir, job.Arc, chapterID)
	if errors.Is(err, fs.ErrNotExist) {
		jsonError(w, "summary not available", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "read summary: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", artifact.ChapterFilename(job.Arc, chapterID)))
	w.Write([]byte(text))
}

// handleMergedSummary merges the finished chapters of a completed job.
func (s *Server) handleMergedSummary(w http.ResponseWriter, r *http.Request) {
	job := s.lookupJob(w, r)
	if job == nil {
		return
	}
	snap := job.Snapshot()
	if snap.Status != pipeline.StatusCompleted && snap.Status != pipeline.StatusPartial {
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}
	var ids []string
	for _, res := range snap.Results {
		if res.Error == "" {
			ids = append(ids, res.ChapterID)
		}
	}
	ids = pipeline.SortChapterIDs(ids)
	path, err := artifact.Merge(job.OutputDir, filepath.Join(job.OutputDir, "merged"), job.Arc, ids)
	if err != nil {
		jsonError(w, "merge: "+err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		jsonError(w, "read merged summary: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filepath.Base(path)))
	w.Write(data)
}
