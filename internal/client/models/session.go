// Package models defines the transfer-session types shared by the manager,
// the session repository and the CLI.
package models

import (
	"slices"
	"time"
)

type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusUploading SessionStatus = "uploading"
	StatusPaused    SessionStatus = "paused"
	StatusCompleted SessionStatus = "completed"
	StatusError     SessionStatus = "error"
	StatusCancelled SessionStatus = "cancelled"
)

// TransferSession is the durable record of an in-progress resumable
// transfer, keyed by the deterministic file identity (filex.FileRef.ID).
// The live envelope byte source and all key material are deliberately not
// part of this record and are never persisted.
type TransferSession struct {
	FileID                string        `json:"fileId"`
	SessionID             string        `json:"sessionId"`
	UploadID              string        `json:"uploadId"`
	FileName              string        `json:"fileName"`
	FileSize              int64         `json:"fileSize"`
	ChunkSize             int64         `json:"chunkSize"`
	TotalChunks           int           `json:"totalChunks"`
	Chunks                []Chunk       `json:"chunks"`
	CompletedChunkIndices []int         `json:"completedChunkIndices"`
	ProgressPercent       float64       `json:"progressPercent"`
	Status                SessionStatus `json:"status"`
	StartedAt             time.Time     `json:"startedAt"`
	ExpiresAt             time.Time     `json:"expiresAt"`
}

// MarkUploaded records chunk completion. Idempotent: marking the same index
// twice leaves the completed set unchanged.
func (s *TransferSession) MarkUploaded(index int) {
	if index < 0 || index >= s.TotalChunks {
		return
	}
	if !slices.Contains(s.CompletedChunkIndices, index) {
		s.CompletedChunkIndices = append(s.CompletedChunkIndices, index)
		slices.Sort(s.CompletedChunkIndices)
	}
	s.Chunks[index].Uploaded = true
	s.RecomputeProgress()
}

// RecomputeProgress re-derives ProgressPercent from the completed set,
// keeping the |completed|/total*100 invariant.
func (s *TransferSession) RecomputeProgress() {
	if s.TotalChunks == 0 {
		s.ProgressPercent = 0
		return
	}
	s.ProgressPercent = float64(len(s.CompletedChunkIndices)) / float64(s.TotalChunks) * 100
}

// Completed reports whether the completed-index set equals [0, totalChunks).
func (s *TransferSession) Completed() bool {
	return len(s.CompletedChunkIndices) == s.TotalChunks
}

// Expired reports whether the session's server-side counterpart is past its
// deadline. Expired sessions must be treated as absent.
func (s *TransferSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// UploadedBytes sums the sizes of all completed chunks.
func (s *TransferSession) UploadedBytes() int64 {
	var total int64
	for _, idx := range s.CompletedChunkIndices {
		if idx >= 0 && idx < len(s.Chunks) {
			total += s.Chunks[idx].Size()
		}
	}
	return total
}

// Terminal reports whether no further scheduling can happen for the session.
func (s *TransferSession) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusCancelled
}
