// Package services contains the resumable transfer session manager: chunk
// scheduling with bounded parallelism, retry with backoff, persisted
// progress and the completion/cancellation protocol.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/sendvault/internal/client/api"
	"github.com/dmitrijs2005/sendvault/internal/client/models"
	"github.com/dmitrijs2005/sendvault/internal/client/repositories/sessions"
	"github.com/dmitrijs2005/sendvault/internal/common"
	"github.com/dmitrijs2005/sendvault/internal/filex"
	"github.com/dmitrijs2005/sendvault/internal/logging"
	"github.com/dmitrijs2005/sendvault/internal/netx"
)

const (
	// DefaultConcurrency caps simultaneous chunk transfers regardless of
	// how many chunks a file has.
	DefaultConcurrency = 3

	// DefaultMaxAttempts is the per-chunk attempt budget.
	DefaultMaxAttempts = 3
)

// ProgressFunc receives a snapshot after every chunk completion.
type ProgressFunc func(models.Progress)

// BackoffFactory builds a fresh retry schedule per chunk. The default is
// exponential starting at 2s (2s, 4s, 8s, ...) capped by the attempt
// budget; tests inject a zero-delay schedule.
type BackoffFactory func() retry.Backoff

// sessionControls are the advisory pause/cancel flags for one file.
// They are checked before work starts, never preemptively aborting
// transfers already in flight.
type sessionControls struct {
	paused    atomic.Bool
	cancelled atomic.Bool
}

// TransferService owns the client-side transfer state machine:
// idle → checking → active → uploading ⇄ paused → completed, with error
// reachable from active/uploading and cancelled from any non-terminal state.
type TransferService struct {
	api        api.Client
	repo       sessions.Repository
	uploader   netx.ChunkUploader
	log        logging.Logger
	concurrent int
	newBackoff BackoffFactory

	// mu serializes all session mutation, persistence and progress
	// callbacks. Workers never read each other's in-progress state.
	mu sync.Mutex

	// ctrlMu guards the flag registry separately from mu, so Pause and
	// Cancel stay callable from inside a progress callback.
	ctrlMu   sync.Mutex
	controls map[string]*sessionControls
}

// Option tweaks TransferService construction.
type Option func(*TransferService)

func WithConcurrency(n int) Option {
	return func(s *TransferService) {
		if n > 0 {
			s.concurrent = n
		}
	}
}

func WithBackoffFactory(f BackoffFactory) Option {
	return func(s *TransferService) { s.newBackoff = f }
}

func WithUploader(u netx.ChunkUploader) Option {
	return func(s *TransferService) { s.uploader = u }
}

func NewTransferService(apiClient api.Client, repo sessions.Repository, log logging.Logger, opts ...Option) *TransferService {
	s := &TransferService{
		api:        apiClient,
		repo:       repo,
		uploader:   netx.NewHTTPUploader(),
		log:        log,
		concurrent: DefaultConcurrency,
		controls:   make(map[string]*sessionControls),
		newBackoff: func() retry.Backoff {
			return retry.WithMaxRetries(DefaultMaxAttempts-1, retry.NewExponential(2*time.Second))
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *TransferService) sessionControls(fileID string) *sessionControls {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	c, ok := s.controls[fileID]
	if !ok {
		c = &sessionControls{}
		s.controls[fileID] = c
	}
	return c
}

func (s *TransferService) dropControls(fileID string) {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	delete(s.controls, fileID)
}

// detectContentType sniffs the original file so the service can record its
// media type. The envelope itself is always opaque bytes.
func detectContentType(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return mt.String()
}

// InitiateUpload requests a new session from the upload API and partitions
// the envelope client-side, so no further partitioning round-trips are
// needed. The session is persisted before the first byte moves.
func (s *TransferService) InitiateUpload(ctx context.Context, file *filex.FileRef, envelopeSize int64, metadata map[string]string) (*models.TransferSession, error) {
	resp, err := s.api.Initiate(ctx, api.InitiateRequest{
		Filename:    file.Name + ".enc",
		FileSize:    envelopeSize,
		ContentType: detectContentType(file.Path),
		Metadata:    metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("initiating session: %w", err)
	}

	session := &models.TransferSession{
		FileID:      file.ID(),
		SessionID:   resp.SessionID,
		UploadID:    resp.UploadID,
		FileName:    file.Name,
		FileSize:    envelopeSize,
		ChunkSize:   resp.ChunkSize,
		TotalChunks: resp.TotalChunks,
		Chunks:      models.PartitionChunks(envelopeSize, resp.ChunkSize),
		Status:      models.StatusActive,
		StartedAt:   time.Now(),
		ExpiresAt:   resp.ExpiresAt,
	}

	if len(session.Chunks) != resp.TotalChunks {
		return nil, fmt.Errorf("partition mismatch: server expects %d chunks, computed %d",
			resp.TotalChunks, len(session.Chunks))
	}

	if err := s.repo.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	s.log.Info(ctx, "upload session initiated",
		"fileID", session.FileID, "sessionID", session.SessionID, "chunks", session.TotalChunks)
	return session, nil
}

// CheckIncompleteUpload looks up a previous session for the same file
// identity. A locally cached session whose server counterpart no longer
// exists (or has expired) is treated as absent and dropped.
func (s *TransferService) CheckIncompleteUpload(ctx context.Context, file *filex.FileRef) (*models.TransferSession, bool, error) {
	if err := s.repo.PruneExpired(ctx, time.Now()); err != nil {
		return nil, false, err
	}

	session, err := s.repo.GetByFileID(ctx, file.ID())
	if errors.Is(err, common.ErrSessionNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	known, err := s.serverKnowsSession(ctx, session.SessionID)
	if err != nil {
		return nil, false, err
	}
	if !known {
		s.log.Info(ctx, "cached session unknown to server, dropping", "fileID", session.FileID)
		if err := s.repo.DeleteByFileID(ctx, session.FileID); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	return session, true, nil
}

func (s *TransferService) serverKnowsSession(ctx context.Context, sessionID string) (bool, error) {
	summaries, err := s.api.ListSessions(ctx)
	if err != nil {
		return false, fmt.Errorf("validating session with server: %w", err)
	}
	for _, sum := range summaries {
		if sum.SessionID == sessionID {
			return true, nil
		}
	}
	return false, nil
}

// ResumeUpload restores a persisted session for a new UploadFile call:
// previously reported chunks are marked uploaded and progress is
// recomputed. The envelope byte source itself is reattached by the caller,
// since it is never persisted.
func (s *TransferService) ResumeUpload(ctx context.Context, fileID string) (*models.TransferSession, error) {
	session, err := s.repo.GetByFileID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if session.Expired(time.Now()) {
		_ = s.repo.DeleteByFileID(ctx, fileID)
		return nil, common.ErrSessionExpired
	}

	for _, idx := range session.CompletedChunkIndices {
		if idx >= 0 && idx < len(session.Chunks) {
			session.Chunks[idx].Uploaded = true
		}
	}
	session.RecomputeProgress()
	session.Status = models.StatusActive

	if err := s.repo.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// UploadFile schedules one task per not-yet-uploaded chunk with bounded
// parallelism, finalizes the session once every chunk is server-confirmed
// and purges it from persistence.
//
// Chunks may complete in any order; correctness depends only on the
// completed-index set. A chunk that exhausts its retries stops without
// aborting sibling transfers already in flight, and the call returns the
// failure after the remaining workers drain.
func (s *TransferService) UploadFile(ctx context.Context, session *models.TransferSession, src io.ReaderAt, opts models.UploadOptions, onProgress ProgressFunc) (*models.CompletionResult, error) {
	ctrl := s.sessionControls(session.FileID)
	ctrl.paused.Store(false)

	s.setStatus(ctx, session, models.StatusUploading)

	var g errgroup.Group
	g.SetLimit(s.concurrent)

	for i := range session.Chunks {
		if session.Chunks[i].Uploaded {
			continue
		}
		if ctrl.paused.Load() || ctrl.cancelled.Load() {
			break
		}
		chunk := session.Chunks[i]
		g.Go(func() error {
			// Re-check after waiting for a slot: pause must stop tasks
			// that have not begun transferring yet.
			if ctrl.paused.Load() {
				return nil
			}
			if ctrl.cancelled.Load() {
				return common.ErrSessionCancelled
			}
			return s.uploadChunk(ctx, session, chunk, src, onProgress, ctrl)
		})
	}

	err := g.Wait()

	switch {
	case ctrl.cancelled.Load() || errors.Is(err, common.ErrSessionCancelled):
		return nil, common.ErrSessionCancelled
	case err != nil:
		s.setStatus(ctx, session, models.StatusError)
		return nil, err
	case !session.Completed():
		// Paused before all chunks were scheduled; resume picks up the rest.
		s.setStatus(ctx, session, models.StatusPaused)
		return nil, common.ErrSessionPaused
	}

	result, err := s.api.Complete(ctx, session.SessionID, opts)
	if err != nil {
		s.setStatus(ctx, session, models.StatusError)
		return nil, fmt.Errorf("finalizing upload: %w", err)
	}

	s.mu.Lock()
	session.Status = models.StatusCompleted
	s.mu.Unlock()
	s.dropControls(session.FileID)

	if err := s.repo.DeleteByFileID(ctx, session.FileID); err != nil {
		s.log.Warn(ctx, "purging completed session failed", "fileID", session.FileID, "err", err)
	}

	s.log.Info(ctx, "upload completed",
		"fileID", session.FileID, "retrievalCode", result.RetrievalCode)
	return result, nil
}

// uploadChunk runs the per-chunk protocol under the injected retry policy:
// presigned URL → range PUT → completion report. "Already uploaded" from the
// URL request means the server holds the chunk; it is marked complete with
// no transfer — the server is the source of truth after partial failures.
func (s *TransferService) uploadChunk(ctx context.Context, session *models.TransferSession, chunk models.Chunk, src io.ReaderAt, onProgress ProgressFunc, ctrl *sessionControls) error {
	err := retry.Do(ctx, s.newBackoff(), func(ctx context.Context) error {
		urlResp, err := s.api.GetUploadURL(ctx, session.SessionID, chunk.Index)
		if err != nil {
			return s.classify(ctx, session, chunk.Index, err)
		}
		if urlResp.AlreadyUploaded {
			return nil
		}

		body := io.NewSectionReader(src, chunk.ByteRangeStart, chunk.Size())
		etag, err := s.uploader.UploadChunk(ctx, urlResp.UploadURL, body, chunk.Size())
		if err != nil {
			return s.classify(ctx, session, chunk.Index, err)
		}

		if err := s.api.CompleteChunk(ctx, session.SessionID, chunk.Index, etag); err != nil {
			return s.classify(ctx, session, chunk.Index, err)
		}
		return nil
	})
	if err != nil {
		return &common.ChunkUploadError{FileID: session.FileID, ChunkIndex: chunk.Index, Err: err}
	}

	s.completeChunk(ctx, session, chunk.Index, onProgress, ctrl)
	return nil
}

// classify decides whether an attempt failure is worth retrying, recording
// the attempt on the chunk either way. Session-level errors and context
// cancellation are permanent; everything else on the chunk path is
// considered transient.
func (s *TransferService) classify(ctx context.Context, session *models.TransferSession, chunkIndex int, err error) error {
	s.mu.Lock()
	session.Chunks[chunkIndex].RetryCount++
	s.mu.Unlock()

	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, common.ErrSessionNotFound),
		errors.Is(err, common.ErrSessionExpired):
		return err
	default:
		s.log.Debug(ctx, "transient chunk failure, will retry",
			"fileID", session.FileID, "chunk", chunkIndex, "err", err)
		return retry.RetryableError(err)
	}
}

// completeChunk is the single mutation path shared by all workers. A worker
// finishing after Cancel deleted the session must not resurrect the record,
// so the cancel flag is re-checked before persisting.
func (s *TransferService) completeChunk(ctx context.Context, session *models.TransferSession, index int, onProgress ProgressFunc, ctrl *sessionControls) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctrl.cancelled.Load() {
		return
	}

	session.MarkUploaded(index)
	if err := s.repo.Save(ctx, session); err != nil {
		s.log.Warn(ctx, "persisting progress failed", "fileID", session.FileID, "err", err)
	}

	if onProgress != nil {
		onProgress(models.Progress{
			Progress:        float64(len(session.CompletedChunkIndices)) / float64(session.TotalChunks),
			CompletedChunks: len(session.CompletedChunkIndices),
			TotalChunks:     session.TotalChunks,
			UploadedBytes:   session.UploadedBytes(),
			TotalBytes:      session.FileSize,
		})
	}
}

func (s *TransferService) setStatus(ctx context.Context, session *models.TransferSession, status models.SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.Status = status
	if err := s.repo.Save(ctx, session); err != nil {
		s.log.Warn(ctx, "persisting status failed", "fileID", session.FileID, "err", err)
	}
}

// Pause stops new chunk tasks from starting. Transfers already in flight
// finish and still count; nothing is discarded.
func (s *TransferService) Pause(fileID string) {
	s.sessionControls(fileID).paused.Store(true)
}

// Cancel releases server-side resources and deletes local state. Reachable
// from any non-terminal state; in-flight workers observe the flag before
// their next attempt.
func (s *TransferService) Cancel(ctx context.Context, fileID string) error {
	ctrl := s.sessionControls(fileID)
	ctrl.cancelled.Store(true)

	session, err := s.repo.GetByFileID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrSessionNotFound) {
			s.dropControls(fileID)
			return nil
		}
		return err
	}

	if err := s.api.Cancel(ctx, session.SessionID); err != nil && !errors.Is(err, common.ErrSessionNotFound) {
		s.log.Warn(ctx, "server-side cancel failed", "fileID", fileID, "err", err)
	}

	if err := s.repo.DeleteByFileID(ctx, fileID); err != nil {
		return err
	}

	// Workers launched for this session keep their pointer to the flagged
	// controls; a future upload of the same file starts clean.
	s.dropControls(fileID)

	s.log.Info(ctx, "upload cancelled", "fileID", fileID)
	return nil
}

// ListIncomplete returns all locally persisted sessions, expired ones
// pruned first.
func (s *TransferService) ListIncomplete(ctx context.Context) ([]*models.TransferSession, error) {
	if err := s.repo.PruneExpired(ctx, time.Now()); err != nil {
		return nil, err
	}
	return s.repo.GetAll(ctx)
}
