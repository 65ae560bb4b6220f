package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/blockdoc/blockdoc/internal/config"
	"github.com/blockdoc/blockdoc/internal/doc"
)

const testKey = "test-api-key"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		Port:          "0",
		APIKey:        testKey,
		BaseURL:       "https://localhost/",
		MaxImageBytes: 5242880,
	}
	return NewServer(log, cfg)
}

func doJSON(t *testing.T, s *Server, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/links/validate", map[string]string{"url": "https://a.com"}, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/links/validate", strings.NewReader(`{"url":"https://a.com"}`))
	req.Header.Set("Authorization", "Bearer wrong-key")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong-key status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Error == "" {
		t.Errorf("401 body not the shared error shape: %q (%v)", rec.Body.String(), err)
	}
}

func TestNormalizeStripsDangerousMarkup(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/documents/normalize", map[string]string{
		"html": `<p>ok</p><script>alert(1)</script><p><a href="javascript:x">link</a></p>`,
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		HTML string `json:"html"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(resp.HTML, "script") || strings.Contains(resp.HTML, "javascript") {
		t.Errorf("normalized HTML still dangerous: %q", resp.HTML)
	}
	if !strings.Contains(resp.HTML, "<p>ok</p>") {
		t.Errorf("safe content lost: %q", resp.HTML)
	}
	if !strings.Contains(resp.HTML, "link") {
		t.Errorf("link text lost with its rejected mark: %q", resp.HTML)
	}
}

func TestTocEndpointAssignsIDs(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/documents/toc", map[string]string{
		"html": "<h2>Hello World</h2><h2>Hello World</h2>",
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		HTML  string        `json:"html"`
		Items []doc.TocItem `json:"items"`
		Block string        `json:"block"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.HTML, `id="hello-world"`) || !strings.Contains(resp.HTML, `id="hello-world-1"`) {
		t.Errorf("html = %q", resp.HTML)
	}
	if len(resp.Items) != 2 || resp.Items[1].ID != "hello-world-1" {
		t.Errorf("items = %+v", resp.Items)
	}
	if !strings.Contains(resp.Block, `data-toc-link="hello-world-1"`) {
		t.Errorf("block markup missing entry: %q", resp.Block)
	}
}

func TestTocEndpointEmptyDocument(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/documents/toc", map[string]string{"html": "<p>x</p>"}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"items":[]`) {
		t.Errorf("items not an empty array: %s", rec.Body.String())
	}
}

func TestMarkdownEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/documents/markdown", map[string]string{
		"markdown": "# Title\n\nSome **bold** text.",
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		HTML string `json:"html"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.HTML, "<h1>Title</h1>") {
		t.Errorf("heading missing: %q", resp.HTML)
	}
	if !strings.Contains(resp.HTML, "<strong>bold</strong>") {
		t.Errorf("bold missing: %q", resp.HTML)
	}
}

func TestValidateLinkEndpoint(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		url   string
		valid bool
	}{
		{"https://example.com", true},
		{"mailto:a@b.com", true},
		{"#section-1", true},
		{"javascript:alert(1)", false},
		{"#", false},
	}
	for _, tc := range cases {
		rec := doJSON(t, s, http.MethodPost, "/api/links/validate", map[string]string{"url": tc.url}, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", tc.url, rec.Code)
		}
		var resp struct {
			Valid bool `json:"valid"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Valid != tc.valid {
			t.Errorf("valid(%q) = %v, want %v", tc.url, resp.Valid, tc.valid)
		}
	}
}

func TestBadBodyRejected(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/documents/normalize", strings.NewReader("not json"))
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadLimitsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/uploads/limits", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		MaxImageBytes int64    `json:"maxImageBytes"`
		AllowedTypes  []string `json:"allowedTypes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.MaxImageBytes != 5242880 {
		t.Errorf("maxImageBytes = %d", resp.MaxImageBytes)
	}
	if len(resp.AllowedTypes) != 5 || resp.AllowedTypes[0] != "image/jpeg" {
		t.Errorf("allowedTypes = %v", resp.AllowedTypes)
	}
}
