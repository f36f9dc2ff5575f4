package models

import "time"

// UploadOptions are the explicit post-upload settings passed to the
// finalize call.
type UploadOptions struct {
	ExpirationHours int     `json:"expirationHours"`
	MaxDownloads    *int    `json:"maxDownloads,omitempty"`
	Description     *string `json:"description,omitempty"`
	IsPublic        bool    `json:"isPublic"`
}

// DefaultUploadOptions mirrors the service defaults: 24h retention,
// unlimited downloads, private.
func DefaultUploadOptions() UploadOptions {
	return UploadOptions{ExpirationHours: 24}
}

// CompletionResult is the retrieval handle returned once the transfer is
// finalized.
type CompletionResult struct {
	FileID        string    `json:"fileId"`
	RetrievalCode string    `json:"retrievalCode"`
	RetrievalURL  string    `json:"retrievalUrl"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Progress is the per-chunk-completion snapshot handed to progress
// callbacks. Throughput and ETA are the caller's business, derived from
// successive (time, bytes) samples.
type Progress struct {
	Progress        float64
	CompletedChunks int
	TotalChunks     int
	UploadedBytes   int64
	TotalBytes      int64
}
