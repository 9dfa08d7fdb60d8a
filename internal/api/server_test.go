package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wilkie/gutenberg/internal/config"
	"github.com/wilkie/gutenberg/internal/pipeline"
)

func newTestServer(t *testing.T, apiKey string, start bool) (*Server, *pipeline.Orchestrator) {
	t.Helper()
	cfg := *config.Default()
	cfg.Server.APIKey = apiKey
	return newServerWith(t, cfg, start)
}

func newServerWith(t *testing.T, cfg config.Config, start bool) (*Server, *pipeline.Orchestrator) {
	t.Helper()
	cfg.Server.Workers = 1
	orch := pipeline.NewOrchestrator(cfg, nil, nil)
	if start {
		orch.Start(context.Background())
	}
	t.Cleanup(orch.Stop)
	return NewServer(orch, nil, nil, nil, cfg), orch
}

func do(s http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, files map[string]string, meta string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	if meta != "" {
		fw, err := mw.CreateFormFile("book", "book.yml")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(meta))
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, "secret", false)
	rec := do(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	s, _ := newTestServer(t, "secret", false)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/stats/render", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if rec := do(s, req); rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestAuthDisabledWithoutKey(t *testing.T) {
	s, _ := newTestServer(t, "", false)
	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/stats/render", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRender(t *testing.T) {
	s, _ := newTestServer(t, "", false)
	body := `{"content": "# Hello\n\nSome text.\n\n## Sub\n", "slug": "hello"}`
	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/render", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp renderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Title != "Hello" || resp.Slug != "hello" {
		t.Errorf("unexpected chapter %q/%q", resp.Title, resp.Slug)
	}
	if !strings.Contains(resp.HTML, "<h2 id='sub'>Sub</h2>") {
		t.Errorf("unexpected html %s", resp.HTML)
	}
	if len(resp.Outline) != 1 || resp.Outline[0].Text != "Sub" || resp.Outline[0].Level != 2 {
		t.Errorf("unexpected outline %+v", resp.Outline)
	}
	if resp.References == nil {
		t.Error("expected empty reference list, got null")
	}
}

func TestRender_Cached(t *testing.T) {
	s, _ := newTestServer(t, "", false)
	body := `{"content": "# Cached\n\nText.\n"}`

	first := do(s, httptest.NewRequest(http.MethodPost, "/api/render", strings.NewReader(body)))
	if first.Code != http.StatusOK || first.Header().Get("X-Render-Cache") != "" {
		t.Fatalf("expected fresh render, got %d %q", first.Code, first.Header().Get("X-Render-Cache"))
	}
	second := do(s, httptest.NewRequest(http.MethodPost, "/api/render", strings.NewReader(body)))
	if second.Header().Get("X-Render-Cache") != "hit" {
		t.Error("expected cached render")
	}
	if first.Body.String() != second.Body.String() {
		t.Error("expected identical responses")
	}

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/stats/render", nil))
	if !strings.Contains(rec.Body.String(), `"cached_renders":1`) {
		t.Errorf("unexpected stats %s", rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	cfg := *config.Default()
	cfg.Server.RateLimit = 2
	s, _ := newServerWith(t, cfg, false)

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = do(s, httptest.NewRequest(http.MethodGet, "/api/stats/render", nil)).Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("unexpected status sequence %v", codes)
	}
	if rec := do(s, httptest.NewRequest(http.MethodGet, "/health", nil)); rec.Code != http.StatusOK {
		t.Errorf("expected health outside the limit, got %d", rec.Code)
	}
}

func TestRender_BadRequests(t *testing.T) {
	s, _ := newTestServer(t, "", false)
	for _, body := range []string{`{`, `{"content": ""}`} {
		rec := do(s, httptest.NewRequest(http.MethodPost, "/api/render", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, rec.Code)
		}
	}
	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/render", strings.NewReader(`{"content": "x", "format": "rtf"}`)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for unknown format, got %d", rec.Code)
	}
}

func TestSubmitBook(t *testing.T) {
	s, _ := newTestServer(t, "", true)

	files := map[string]string{"ch1.md": "# One\n\nText.\n"}
	body, ctype := multipartBody(t, files, "title: Uploaded\n")
	req := httptest.NewRequest(http.MethodPost, "/api/books", body)
	req.Header.Set("Content-Type", ctype)
	rec := do(s, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var submitted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("decode: %v", err)
	}

	var snap pipeline.JobSnapshot
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec = do(s, httptest.NewRequest(http.MethodGet, submitted.PollURL, nil))
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if snap.Status == pipeline.StatusCompleted || snap.Status == pipeline.StatusFailed {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %s: %v", snap.Status, snap.Progress.Errors)
	}

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/books/"+submitted.JobID+"/html", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<title>Uploaded</title>") {
		t.Errorf("unexpected document %d", rec.Code)
	}

	// Same upload again reuses the finished job.
	body, ctype = multipartBody(t, files, "title: Uploaded\n")
	req = httptest.NewRequest(http.MethodPost, "/api/books", body)
	req.Header.Set("Content-Type", ctype)
	rec = do(s, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), submitted.JobID) {
		t.Errorf("expected reused job, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitBook_Rejects(t *testing.T) {
	s, _ := newTestServer(t, "", false)

	body, ctype := multipartBody(t, map[string]string{"ch1.rtf": "x"}, "")
	req := httptest.NewRequest(http.MethodPost, "/api/books", body)
	req.Header.Set("Content-Type", ctype)
	if rec := do(s, req); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported type, got %d", rec.Code)
	}

	body, ctype = multipartBody(t, map[string]string{"paper.pdf": "not a pdf"}, "")
	req = httptest.NewRequest(http.MethodPost, "/api/books", body)
	req.Header.Set("Content-Type", ctype)
	if rec := do(s, req); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for mislabeled pdf, got %d", rec.Code)
	}

	body, ctype = multipartBody(t, nil, "title: x\n")
	req = httptest.NewRequest(http.MethodPost, "/api/books", body)
	req.Header.Set("Content-Type", ctype)
	if rec := do(s, req); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without files, got %d", rec.Code)
	}
}

func TestSubmitBook_QueueFullRemovesUpload(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	cfg := *config.Default()
	cfg.Server.QueueSize = 1
	s, _ := newServerWith(t, cfg, false)

	tests := []struct {
		chapter string
		want    int
		staged  int
	}{
		{"# One\n", http.StatusAccepted, 1},
		{"# Two\n", http.StatusServiceUnavailable, 1},
	}
	for _, tt := range tests {
		body, ctype := multipartBody(t, map[string]string{"ch1.md": tt.chapter}, "")
		req := httptest.NewRequest(http.MethodPost, "/api/books", body)
		req.Header.Set("Content-Type", ctype)
		if rec := do(s, req); rec.Code != tt.want {
			t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
		}
		dirs, err := filepath.Glob(filepath.Join(tmp, "gutenberg-book-*"))
		if err != nil {
			t.Fatal(err)
		}
		if len(dirs) != tt.staged {
			t.Errorf("after %d: expected %d staged uploads, got %v", tt.want, tt.staged, dirs)
		}
	}
}

func TestBookEndpoints_UnknownJob(t *testing.T) {
	s, _ := newTestServer(t, "", false)
	for _, path := range []string{"/api/books/nope/status", "/api/books/nope/html"} {
		if rec := do(s, httptest.NewRequest(http.MethodGet, path, nil)); rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"ch1.md":         "ch1.md",
		"../../etc/x.md": "x.md",
		`dir\win.md`:     "win.md",
		"a..b.md":        "a_b.md",
		"":               "unnamed",
		"book.yml":       "unnamed",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
