package api

import (
	"encoding/json"
	"net/http"

	"github.com/patrickmn/go-cache"

	"github.com/wilkie/gutenberg/internal/chapter"
	"github.com/wilkie/gutenberg/internal/outline"
	"github.com/wilkie/gutenberg/internal/pipeline"
	"github.com/wilkie/gutenberg/internal/reference"
)

type renderRequest struct {
	Content  string         `json:"content"`
	Format   chapter.Format `json:"format"`
	Title    string         `json:"title"`
	Slug     string         `json:"slug"`
	Index    string         `json:"index"`
	Language string         `json:"language"`
}

type outlineEntry struct {
	Text     string         `json:"text"`
	Slug     string         `json:"slug"`
	Level    int            `json:"level"`
	Children []outlineEntry `json:"children"`
}

type renderResponse struct {
	Title      string            `json:"title"`
	Slug       string            `json:"slug"`
	Language   string            `json:"language"`
	Summary    string            `json:"summary"`
	HTML       string            `json:"html"`
	Outline    []outlineEntry    `json:"outline"`
	References []reference.Entry `json:"references"`
}

// handleRender renders one chapter synchronously.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)

	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		jsonError(w, "content is required", http.StatusBadRequest)
		return
	}

	key, _ := json.Marshal(req)
	cacheKey := pipeline.ContentHashHex(key)
	if s.renders != nil {
		if resp, ok := s.renders.Get(cacheKey); ok {
			w.Header().Set("X-Render-Cache", "hit")
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}

	opts := chapter.Options{
		Title:       req.Title,
		Slug:        req.Slug,
		Index:       req.Index,
		Language:    req.Language,
		Content:     req.Content,
		Format:      req.Format,
		Hyphenators: s.hyphenators,
		Logger:      s.log,
	}
	if opts.Index == "" {
		opts.Index = "1"
	}
	if s.style != nil {
		opts.Style = s.style
	}
	c, err := chapter.New(opts)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	refs := c.References().Entries()
	if refs == nil {
		refs = []reference.Entry{}
	}
	resp := renderResponse{
		Title:      c.Title,
		Slug:       c.Slug,
		Language:   c.Language,
		Summary:    c.Summary,
		HTML:       c.HTML,
		Outline:    outlineEntries(c.Outline(), c.Outline().Root()),
		References: refs,
	}
	if s.renders != nil {
		s.renders.Set(cacheKey, resp, cache.DefaultExpiration)
	}
	writeJSON(w, http.StatusOK, resp)
}

func outlineEntries(t *outline.Tree, parent outline.NodeID) []outlineEntry {
	out := []outlineEntry{}
	for _, id := range t.Children(parent) {
		out = append(out, outlineEntry{
			Text:     t.Text(id),
			Slug:     t.Slug(id),
			Level:    t.Level(id),
			Children: outlineEntries(t, id),
		})
	}
	return out
}
