package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrijs2005/sendvault/internal/client/models"
	"github.com/dmitrijs2005/sendvault/internal/common"
)

// RESTClient talks JSON over HTTP to the hosted upload service.
type RESTClient struct {
	baseURL string
	http    *http.Client
}

func NewRESTClient(baseURL string) *RESTClient {
	return &RESTClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// doJSON sends body (if non-nil) as JSON and decodes the response into out
// (if non-nil). 404 maps to ErrSessionNotFound so callers can treat
// server-forgotten sessions as absent.
func (c *RESTClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return common.ErrSessionNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(b))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func (c *RESTClient) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	var resp InitiateResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/uploads/initiate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RESTClient) GetUploadURL(ctx context.Context, sessionID string, chunkIndex int) (*UploadURLResponse, error) {
	req := struct {
		SessionID   string `json:"session_id"`
		ChunkNumber int    `json:"chunk_number"`
	}{sessionID, chunkIndex}

	var resp UploadURLResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/uploads/get-upload-url", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompleteChunk reports a finished chunk. Unlike the other endpoints, the
// service binds these fields from the query string, not a JSON body.
func (c *RESTClient) CompleteChunk(ctx context.Context, sessionID string, chunkIndex int, integrityToken string) error {
	q := url.Values{}
	q.Set("session_id", sessionID)
	q.Set("chunk_number", strconv.Itoa(chunkIndex))
	q.Set("etag", integrityToken)

	return c.doJSON(ctx, http.MethodPost, "/api/v1/uploads/complete-chunk?"+q.Encode(), nil, nil)
}

func (c *RESTClient) Complete(ctx context.Context, sessionID string, opts models.UploadOptions) (*models.CompletionResult, error) {
	req := struct {
		SessionID       string  `json:"session_id"`
		ExpirationHours int     `json:"expiration_hours"`
		MaxDownloads    *int    `json:"max_downloads,omitempty"`
		Description     *string `json:"description,omitempty"`
		IsPublic        bool    `json:"is_public"`
	}{sessionID, opts.ExpirationHours, opts.MaxDownloads, opts.Description, opts.IsPublic}

	var resp struct {
		FileID      string    `json:"file_id"`
		ShortCode   string    `json:"short_code"`
		DownloadURL string    `json:"download_url"`
		ExpiresAt   time.Time `json:"expires_at"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/uploads/complete", req, &resp); err != nil {
		return nil, err
	}
	return &models.CompletionResult{
		FileID:        resp.FileID,
		RetrievalCode: resp.ShortCode,
		RetrievalURL:  resp.DownloadURL,
		ExpiresAt:     resp.ExpiresAt,
	}, nil
}

func (c *RESTClient) Cancel(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/uploads/sessions/"+sessionID, nil, nil)
}

func (c *RESTClient) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	var resp []SessionSummary
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/uploads/sessions", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *RESTClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
