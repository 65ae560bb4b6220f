package upload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/blockdoc/blockdoc/internal/editor"
	"github.com/blockdoc/blockdoc/internal/sanitize"
	"github.com/blockdoc/blockdoc/internal/schema"
)

// uploadService is a fake upload backend recording which phases ran.
type uploadService struct {
	t *testing.T

	presigns  int
	transfers int
	confirms  int

	failPresign  bool
	failTransfer bool
	failConfirm  bool

	srv *httptest.Server
}

func newUploadService(t *testing.T) *uploadService {
	s := &uploadService{t: t}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload/presign", func(w http.ResponseWriter, r *http.Request) {
		s.presigns++
		if s.failPresign {
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
		var req presignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad presign request: %v", err)
		}
		if req.Filename == "" || req.MimeType == "" || req.SizeBytes <= 0 || req.PostID == "" {
			t.Errorf("incomplete presign request: %+v", req)
		}
		json.NewEncoder(w).Encode(presignResponse{
			PresignedURL: s.srv.URL + "/blob/abc",
			ObjectKey:    "post-1/abc.png",
			PublicURL:    "https://files.example.com/abc.png",
		})
	})
	mux.HandleFunc("PUT /blob/abc", func(w http.ResponseWriter, r *http.Request) {
		s.transfers++
		if s.failTransfer {
			http.Error(w, "disk full", http.StatusInsufficientStorage)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /upload/confirm", func(w http.ResponseWriter, r *http.Request) {
		s.confirms++
		if s.failConfirm {
			http.Error(w, "unknown object", http.StatusConflict)
			return
		}
		var req confirmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad confirm request: %v", err)
		}
		if req.ObjectKey != "post-1/abc.png" || req.URL != "https://files.example.com/abc.png" {
			t.Errorf("confirm does not echo the grant: %+v", req)
		}
		w.WriteHeader(http.StatusOK)
	})
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *uploadService) client() *Client {
	return NewClient(s.srv.URL, "test-key", 0)
}

func TestValidateRejectsBeforeNetwork(t *testing.T) {
	svc := newUploadService(t)
	c := svc.client()

	cases := []struct {
		name        string
		contentType string
		size        int
		wantMsg     string
	}{
		{"bad type", "application/pdf", 10, "unsupported image type"},
		{"empty", "image/png", 0, "empty"},
		{"oversized", "image/png", DefaultMaxBytes + 1, "limit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Upload(context.Background(), "post-1", "a.png", tc.contentType, make([]byte, tc.size))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("error = %v, want mention of %q", err, tc.wantMsg)
			}
		})
	}
	if svc.presigns != 0 {
		t.Errorf("validation failures reached the network: %d presign requests", svc.presigns)
	}
}

func TestUploadRunsAllPhases(t *testing.T) {
	svc := newUploadService(t)
	url, err := svc.client().Upload(context.Background(), "post-1", "a.png", "image/png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://files.example.com/abc.png" {
		t.Errorf("public url = %q", url)
	}
	if svc.presigns != 1 || svc.transfers != 1 || svc.confirms != 1 {
		t.Errorf("phases = %d/%d/%d, want 1/1/1", svc.presigns, svc.transfers, svc.confirms)
	}
}

func TestUploadAbortsOnPhaseFailure(t *testing.T) {
	t.Run("presign", func(t *testing.T) {
		svc := newUploadService(t)
		svc.failPresign = true
		if _, err := svc.client().Upload(context.Background(), "post-1", "a.png", "image/png", []byte("x")); err == nil {
			t.Fatal("expected error")
		}
		if svc.transfers != 0 || svc.confirms != 0 {
			t.Errorf("later phases ran after presign failure: %d/%d", svc.transfers, svc.confirms)
		}
	})
	t.Run("transfer", func(t *testing.T) {
		svc := newUploadService(t)
		svc.failTransfer = true
		if _, err := svc.client().Upload(context.Background(), "post-1", "a.png", "image/png", []byte("x")); err == nil {
			t.Fatal("expected error")
		}
		if svc.confirms != 0 {
			t.Errorf("confirm ran after transfer failure")
		}
	})
	t.Run("confirm", func(t *testing.T) {
		svc := newUploadService(t)
		svc.failConfirm = true
		if _, err := svc.client().Upload(context.Background(), "post-1", "a.png", "image/png", []byte("x")); err == nil {
			t.Fatal("expected error")
		}
	})
}

func newTestEditor(t *testing.T) *editor.Editor {
	t.Helper()
	return editor.New(schema.New(sanitize.DefaultBase))
}

func TestInsertImageOnlyAfterConfirm(t *testing.T) {
	svc := newUploadService(t)
	ed := newTestEditor(t)
	if err := InsertImage(context.Background(), svc.client(), ed, "post-1", "a.png", "image/png", []byte("x"), "alt text"); err != nil {
		t.Fatalf("InsertImage: %v", err)
	}
	fig := ed.Doc().Root.Child(0)
	if fig.Type != "figure" {
		t.Fatalf("block = %s, want figure", fig.Type)
	}
	if got := fig.StringAttr("src"); got != "https://files.example.com/abc.png" {
		t.Errorf("src = %q", got)
	}
}

func TestInsertImageFailureLeavesDocument(t *testing.T) {
	svc := newUploadService(t)
	svc.failConfirm = true
	ed := newTestEditor(t)
	before := ed.HTML()
	if err := InsertImage(context.Background(), svc.client(), ed, "post-1", "a.png", "image/png", []byte("x"), ""); err == nil {
		t.Fatal("expected error")
	}
	if got := ed.HTML(); got != before {
		t.Fatalf("document changed on failed upload: %q", got)
	}
}
