// Package api defines the Upload Session API consumed by the transfer
// manager, plus its two implementations: the hosted REST service and a
// direct S3-compatible backend for self-hosted deployments.
package api

import (
	"context"
	"time"

	"github.com/dmitrijs2005/sendvault/internal/client/models"
)

// InitiateRequest starts a new upload session. The service decides chunk
// size and expiry; the client partitions locally from the response.
type InitiateRequest struct {
	Filename    string            `json:"filename"`
	FileSize    int64             `json:"file_size"`
	ContentType string            `json:"content_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type InitiateResponse struct {
	SessionID   string    `json:"session_id"`
	UploadID    string    `json:"upload_id"`
	ChunkSize   int64     `json:"chunk_size"`
	TotalChunks int       `json:"total_chunks"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UploadURLResponse carries the presigned per-chunk URL. AlreadyUploaded
// means the server already holds this chunk and no transfer is needed;
// the server is the source of truth here.
type UploadURLResponse struct {
	UploadURL       string `json:"upload_url"`
	AlreadyUploaded bool   `json:"already_uploaded"`
}

// SessionSummary is the server-side view of an active session, used to
// validate that a locally cached session still exists.
type SessionSummary struct {
	SessionID       string    `json:"session_id"`
	Filename        string    `json:"filename"`
	FileSize        int64     `json:"file_size"`
	TotalChunks     int       `json:"total_chunks"`
	CompletedChunks int       `json:"completed_chunks"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Client is the Upload Session API. Chunk bytes themselves never travel
// through it; they are PUT directly against presigned URLs (netx).
type Client interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	GetUploadURL(ctx context.Context, sessionID string, chunkIndex int) (*UploadURLResponse, error)
	CompleteChunk(ctx context.Context, sessionID string, chunkIndex int, integrityToken string) error
	Complete(ctx context.Context, sessionID string, opts models.UploadOptions) (*models.CompletionResult, error)
	Cancel(ctx context.Context, sessionID string) error
	ListSessions(ctx context.Context) ([]SessionSummary, error)
	Close() error
}
