// Package common defines shared constants and sentinel errors used across
// the SendVault client. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Codec errors.
	ErrCryptoUnsupported = errors.New("required crypto primitives unavailable")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrCorruptedPayload  = errors.New("corrupted payload")

	// Session lifecycle errors.
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExpired   = errors.New("session expired")
	ErrSessionCancelled = errors.New("session cancelled")
	// ErrSessionPaused signals that an upload call stopped before
	// completion because the session was paused; resuming continues it.
	ErrSessionPaused = errors.New("session paused")
)

// ChunkUploadError reports that a single chunk exhausted its retry budget.
// It carries enough context for the caller to decide whether resuming the
// transfer is meaningful.
type ChunkUploadError struct {
	FileID     string
	ChunkIndex int
	Err        error
}

func (e *ChunkUploadError) Error() string {
	return fmt.Sprintf("chunk %d of %s: upload failed: %v", e.ChunkIndex, e.FileID, e.Err)
}

func (e *ChunkUploadError) Unwrap() error { return e.Err }
