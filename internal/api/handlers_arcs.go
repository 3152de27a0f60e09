package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/sumzero/internal/arc"
	"github.com/dgallion1/sumzero/internal/chunker"
	"github.com/dgallion1/sumzero/internal/parser"
	"github.com/dgallion1/sumzero/internal/pipeline"
	"github.com/dgallion1/sumzero/internal/summarize"
)

func (s *Server) handleUploadArc(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	p, err := parser.ForFile(filename, parser.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext})
	if err != nil {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	// Read file data.
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	text, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		jsonError(w, "parse: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	doc, err := arc.Parse(text)
	if err != nil {
		var se *arc.StructureError
		if errors.As(err, &se) {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	entry := s.orchestrator.Arcs().Put(filename, doc)
	s.log.Info("arc uploaded", "arc_id", entry.ID, "arc", doc.Arc, "blocks", len(doc.Blocks))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"arc_id":   entry.ID,
		"arc":      doc.Arc,
		"filename": filename,
		"blocks":   len(doc.Blocks),
		"chapters": doc.Chapters(),
	})
}

// lookupArc writes a 404 and returns nil when the arc is unknown.
func (s *Server) lookupArc(w http.ResponseWriter, r *http.Request) *pipeline.ArcEntry {
	entry := s.orchestrator.Arcs().Get(chi.URLParam(r, "arcID"))
	if entry == nil {
		jsonError(w, "arc not found", http.StatusNotFound)
	}
	return entry
}

func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	entry := s.lookupArc(w, r)
	if entry == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"arc_id":   entry.ID,
		"arc":      entry.Doc.Arc,
		"chapters": entry.Doc.Chapters(),
	})
}

type blockPlan struct {
	Ordinal    int           `json:"block"`
	ChapterID  string        `json:"chapter_id"`
	Part       int           `json:"part"`
	HeaderLine string        `json:"header"`
	Plan       *chunker.Plan `json:"plan,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// handlePlan previews tier selection without calling the model.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	entry := s.lookupArc(w, r)
	if entry == nil {
		return
	}
	highCapacity, _ := strconv.ParseBool(r.URL.Query().Get("high_capacity"))
	sizer := chunker.NewSizer(s.tok, summarize.InstructionSuffix,
		chunker.DefaultTiers(s.cfg.StandardModel, s.cfg.LargeModel), highCapacity)

	blocks := entry.Doc.Blocks
	if id := r.URL.Query().Get("chapter"); id != "" {
		ordinals, err := arc.ChapterIndex(blocks, id)
		if err != nil {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		selected := make([]arc.Block, len(ordinals))
		for i, ord := range ordinals {
			selected[i] = blocks[ord]
		}
		blocks = selected
	}

	plans := make([]blockPlan, 0, len(blocks))
	for _, b := range blocks {
		bp := blockPlan{Ordinal: b.Ordinal, ChapterID: b.ChapterID, Part: b.Part, HeaderLine: b.HeaderLine}
		if plan, err := sizer.Plan(b); err != nil {
			bp.Error = err.Error()
		} else {
			bp.Plan = &plan
		}
		plans = append(plans, bp)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"arc_id":        entry.ID,
		"high_capacity": highCapacity,
		"blocks":        plans,
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
