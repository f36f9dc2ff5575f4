package sessions

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/sendvault/internal/client/models"
	"github.com/dmitrijs2005/sendvault/internal/common"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDatabase(context.Background(), "file:sessions_test?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`DELETE FROM transfer_sessions`)
	require.NoError(t, err)
	return db
}

func sampleSession(fileID string) *models.TransferSession {
	chunks := models.PartitionChunks(250, 100)
	return &models.TransferSession{
		FileID:      fileID,
		SessionID:   "sess-" + fileID,
		UploadID:    "up-" + fileID,
		FileName:    "report.pdf",
		FileSize:    250,
		ChunkSize:   100,
		TotalChunks: len(chunks),
		Chunks:      chunks,
		Status:      models.StatusActive,
		StartedAt:   time.Now().Truncate(time.Millisecond),
		ExpiresAt:   time.Now().Add(7 * 24 * time.Hour).Truncate(time.Millisecond),
	}
}

func TestSQLiteRepository_SaveAndGet(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	s := sampleSession("report.pdf_250_1")
	s.MarkUploaded(1)
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.GetByFileID(ctx, s.FileID)
	require.NoError(t, err)
	require.Equal(t, s.SessionID, got.SessionID)
	require.Equal(t, []int{1}, got.CompletedChunkIndices)
	require.Equal(t, s.Chunks, got.Chunks)
	require.Equal(t, models.StatusActive, got.Status)
	require.True(t, s.ExpiresAt.Equal(got.ExpiresAt))
}

func TestSQLiteRepository_SaveIsUpsert(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	s := sampleSession("f_1_1")
	require.NoError(t, repo.Save(ctx, s))

	s.MarkUploaded(0)
	s.Status = models.StatusUploading
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.GetByFileID(ctx, s.FileID)
	require.NoError(t, err)
	require.Equal(t, models.StatusUploading, got.Status)
	require.Equal(t, []int{0}, got.CompletedChunkIndices)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1, "upsert must not duplicate rows")
}

func TestSQLiteRepository_GetMissing(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)

	_, err := repo.GetByFileID(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrSessionNotFound)
}

func TestSQLiteRepository_Delete(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	s := sampleSession("f_2_2")
	require.NoError(t, repo.Save(ctx, s))
	require.NoError(t, repo.DeleteByFileID(ctx, s.FileID))

	_, err := repo.GetByFileID(ctx, s.FileID)
	require.ErrorIs(t, err, common.ErrSessionNotFound)

	// Deleting a missing session is not an error.
	require.NoError(t, repo.DeleteByFileID(ctx, s.FileID))
}

func TestSQLiteRepository_PruneExpired(t *testing.T) {
	db := setupDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	live := sampleSession("live_1_1")
	expired := sampleSession("expired_1_1")
	expired.ExpiresAt = time.Now().Add(-time.Hour)

	require.NoError(t, repo.Save(ctx, live))
	require.NoError(t, repo.Save(ctx, expired))

	require.NoError(t, repo.PruneExpired(ctx, time.Now()))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, live.FileID, all[0].FileID)
}
