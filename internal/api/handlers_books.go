package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/wilkie/gutenberg/internal/book"
	"github.com/wilkie/gutenberg/internal/pipeline"
	"github.com/wilkie/gutenberg/internal/source"
)

// handleSubmitBook accepts chapter files under "files" and an optional
// book.yml under "book", and queues a build.
func (s *Server) handleSubmitBook(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Server.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	for _, fh := range files {
		name := sanitizeFilename(fh.Filename)
		if !source.IsSupportedExtension(name) {
			jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(name)), http.StatusBadRequest)
			return
		}
	}

	dir, err := os.MkdirTemp("", "gutenberg-book-")
	if err != nil {
		jsonError(w, "failed to stage upload", http.StatusInternalServerError)
		return
	}

	var content strings.Builder
	var total int64
	stage := func(fh *multipart.FileHeader, name string) error {
		data, err := readPart(fh, limit-total)
		if err != nil {
			return err
		}
		if err := source.Verify(name, data); err != nil {
			return err
		}
		total += int64(len(data))
		content.WriteString(name)
		content.Write(data)
		return os.WriteFile(filepath.Join(dir, name), data, 0o644)
	}

	fail := func(err error) {
		os.RemoveAll(dir)
		code := http.StatusBadRequest
		if errors.Is(err, errTooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		jsonError(w, err.Error(), code)
	}
	if meta := r.MultipartForm.File["book"]; len(meta) > 0 {
		if err := stage(meta[0], book.ConfigFile); err != nil {
			fail(err)
			return
		}
	}
	for _, fh := range files {
		if err := stage(fh, sanitizeFilename(fh.Filename)); err != nil {
			fail(err)
			return
		}
	}

	hash := pipeline.ContentHashHex([]byte(content.String()))
	if prev := s.orchestrator.Completed(hash); prev != nil {
		os.RemoveAll(dir)
		s.log.Info("Reusing completed build", zap.String("job_id", prev.ID))
		writeJSON(w, http.StatusOK, submitResponse(prev))
		return
	}

	job := pipeline.NewJob(dir)
	job.ContentHash = hash
	if err := s.orchestrator.Submit(job); err != nil {
		os.RemoveAll(dir)
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse(job))
}

func submitResponse(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"job_id":   snap.ID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/books/%s/status", snap.ID),
	}
}

var errTooLarge = errors.New("upload exceeds max size")

func readPart(fh *multipart.FileHeader, remaining int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s", fh.Filename)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, remaining+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s", fh.Filename)
	}
	if int64(len(data)) > remaining {
		return nil, errTooLarge
	}
	return data, nil
}

func (s *Server) handleBookStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleBookHTML(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	doc, ok := job.HTML()
	if !ok {
		jsonError(w, "job not completed", http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, doc)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" || name == book.ConfigFile {
		name = "unnamed"
	}
	return name
}
