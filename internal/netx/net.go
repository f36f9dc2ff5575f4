// Package netx performs the raw chunk byte transfer: a PUT against a
// presigned URL whose response carries the integrity token (ETag).
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TransientStatusError marks an HTTP failure that is worth retrying.
type TransientStatusError struct {
	StatusCode int
	Body       string
}

func (e *TransientStatusError) Error() string {
	return fmt.Sprintf("transient upload failure: status %d: %s", e.StatusCode, e.Body)
}

// ChunkUploader PUTs chunk bytes to presigned URLs.
type ChunkUploader interface {
	UploadChunk(ctx context.Context, url string, body io.Reader, size int64) (etag string, err error)
}

// HTTPUploader is the production ChunkUploader backed by net/http.
type HTTPUploader struct {
	client *http.Client
}

// NewHTTPUploader returns an uploader with no overall request timeout:
// a 100 MiB chunk on a slow link legitimately takes minutes, so cancellation
// is left to the caller's context.
func NewHTTPUploader() *HTTPUploader {
	return &HTTPUploader{client: &http.Client{
		Transport: &http.Transport{
			ResponseHeaderTimeout: 2 * time.Minute,
		},
	}}
}

// UploadChunk transfers one chunk and returns the storage backend's
// integrity token from the ETag response header. Server-side statuses
// (5xx and 429) come back as TransientStatusError so the caller's retry
// policy can distinguish them from permanent rejections.
func (u *HTTPUploader) UploadChunk(ctx context.Context, url string, body io.Reader, size int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return "", err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return "", &TransientStatusError{StatusCode: resp.StatusCode, Body: string(b)}
		}
		return "", fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}

	return strings.Trim(resp.Header.Get("ETag"), `"`), nil
}
