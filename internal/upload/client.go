// Package upload implements the two-phase image upload protocol: request
// a presigned destination, transfer the bytes, confirm receipt. Validation
// happens entirely before the first network call, and a failure at any
// phase aborts with nothing inserted into the document.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/blockdoc/blockdoc/internal/editor"
)

// DefaultMaxBytes caps image uploads at 5 MB unless configured otherwise.
const DefaultMaxBytes = 5 * 1024 * 1024

var allowedImageTypes = map[string]bool{
	"image/jpeg":    true,
	"image/png":     true,
	"image/gif":     true,
	"image/webp":    true,
	"image/svg+xml": true,
}

// AllowedTypes lists the accepted image MIME types in stable order.
func AllowedTypes() []string {
	return []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/svg+xml"}
}

// Client talks to the upload service.
type Client struct {
	baseURL    string
	apiKey     string
	maxBytes   int64
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, maxBytes int64) *Client {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		maxBytes: maxBytes,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Validate checks type and size before any network traffic. Errors are
// worded for direct display to the user.
func (c *Client) Validate(contentType string, size int64) error {
	if !allowedImageTypes[contentType] {
		return fmt.Errorf("unsupported image type %q: use JPEG, PNG, GIF, WebP or SVG", contentType)
	}
	if size <= 0 {
		return fmt.Errorf("image file is empty")
	}
	if size > c.maxBytes {
		return fmt.Errorf("image is %.1f MB, the limit is %.1f MB",
			float64(size)/(1024*1024), float64(c.maxBytes)/(1024*1024))
	}
	return nil
}

// presignRequest is the body for POST /upload/presign.
type presignRequest struct {
	Filename  string `json:"filename"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
	PostID    string `json:"postId"`
}

// presignResponse describes the granted upload destination.
type presignResponse struct {
	PresignedURL string `json:"presignedUrl"`
	ObjectKey    string `json:"objectKey"`
	PublicURL    string `json:"publicUrl"`
}

type confirmRequest struct {
	ObjectKey    string `json:"objectKey"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	SizeBytes    int64  `json:"sizeBytes"`
	URL          string `json:"url"`
	PostID       string `json:"postId"`
}

// Upload runs the full two-phase protocol and returns the public URL of
// the stored image. No phase leaves partial state behind on failure.
func (c *Client) Upload(ctx context.Context, postID, filename, contentType string, data []byte) (string, error) {
	if err := c.Validate(contentType, int64(len(data))); err != nil {
		return "", err
	}
	grant, err := c.presign(ctx, postID, filename, contentType, int64(len(data)))
	if err != nil {
		return "", err
	}
	if err := c.transfer(ctx, grant.PresignedURL, contentType, data); err != nil {
		return "", err
	}
	if err := c.confirm(ctx, postID, filename, contentType, int64(len(data)), grant); err != nil {
		return "", err
	}
	return grant.PublicURL, nil
}

func (c *Client) presign(ctx context.Context, postID, filename, contentType string, size int64) (*presignResponse, error) {
	body, err := json.Marshal(presignRequest{
		Filename:  filename,
		MimeType:  contentType,
		SizeBytes: size,
		PostID:    postID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal presign request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/presign", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request presigned upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("request presigned upload: status %d: %s", resp.StatusCode, string(respBody))
	}

	var grant presignResponse
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return nil, fmt.Errorf("decode presign response: %w", err)
	}
	if grant.PresignedURL == "" || grant.PublicURL == "" {
		return nil, fmt.Errorf("presign response missing URLs")
	}
	return &grant, nil
}

func (c *Client) transfer(ctx context.Context, presignedURL, contentType string, data []byte) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.ContentLength = int64(len(data))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("transfer image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("transfer image: status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (c *Client) confirm(ctx context.Context, postID, filename, contentType string, size int64, grant *presignResponse) error {
	body, err := json.Marshal(confirmRequest{
		ObjectKey:    grant.ObjectKey,
		Filename:     filename,
		OriginalName: filename,
		MimeType:     contentType,
		SizeBytes:    size,
		URL:          grant.PublicURL,
		PostID:       postID,
	})
	if err != nil {
		return fmt.Errorf("marshal confirm request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/confirm", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("confirm upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("confirm upload: status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// InsertImage uploads an image and, only once the service confirms
// receipt, inserts a figure for it at the editor's selection. On any
// upload failure the document is untouched.
func InsertImage(ctx context.Context, c *Client, ed *editor.Editor, postID, filename, contentType string, data []byte, alt string) error {
	publicURL, err := c.Upload(ctx, postID, filename, contentType, data)
	if err != nil {
		return err
	}
	return ed.Chain().Focus().InsertFigure(publicURL, alt).Run()
}
