package api

import (
	"encoding/json"
	"net/http"

	"github.com/blockdoc/blockdoc/internal/doc"
	"github.com/blockdoc/blockdoc/internal/sanitize"
	"github.com/blockdoc/blockdoc/internal/toc"
	"github.com/blockdoc/blockdoc/internal/upload"
)

// maxBodyBytes caps document payloads accepted by the API.
const maxBodyBytes = 2 << 20

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// handleNormalize runs untrusted HTML through the full parse boundary and
// returns the canonical sanitized form. This is what persisted content
// looks like after a round trip through the editor.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HTML string `json:"html"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	d, err := s.parser.ParseDocument(req.HTML)
	if err != nil {
		jsonError(w, "failed to parse document: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := s.reg.ValidateDocument(d); err != nil {
		jsonError(w, "document violates content model: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"html": s.renderer.RenderDocument(d)})
}

// handleToc assigns heading anchors in persisted HTML and returns the
// rewritten markup plus the derived entries. Ids match what the live
// editor would generate for the same content.
func (s *Server) handleToc(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HTML string `json:"html"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	out, items, err := toc.ProcessHTML(req.HTML)
	if err != nil {
		jsonError(w, "failed to process document: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if items == nil {
		items = []doc.TocItem{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"html":  out,
		"items": items,
		"block": toc.RenderBlock(items),
	})
}

// handleMarkdown converts markdown source into the editor's sanitized
// HTML form.
func (s *Server) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Markdown string `json:"markdown"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	d, err := s.parser.ParseMarkdown([]byte(req.Markdown))
	if err != nil {
		jsonError(w, "failed to parse markdown: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"html": s.renderer.RenderDocument(d)})
}

// handleValidateLink applies the link-insertion protocol rules to a URL.
func (s *Server) handleValidateLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"url":   req.URL,
		"valid": sanitize.IsValidURL(req.URL),
	})
}

// handleUploadLimits reports the image constraints the editor enforces
// before uploading. The byte cap comes from the same configuration value
// the upload client validates against.
func (s *Server) handleUploadLimits(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"maxImageBytes": s.cfg.MaxImageBytes,
		"allowedTypes":  upload.AllowedTypes(),
	})
}
