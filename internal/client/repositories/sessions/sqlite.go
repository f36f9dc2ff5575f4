package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/sendvault/internal/client/migrations"
	"github.com/dmitrijs2005/sendvault/internal/client/models"
	"github.com/dmitrijs2005/sendvault/internal/common"
	"github.com/dmitrijs2005/sendvault/internal/dbx"
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// InitDatabase opens the sqlite session database and applies embedded
// migrations.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, s *models.TransferSession) error {
	chunks, err := json.Marshal(s.Chunks)
	if err != nil {
		return fmt.Errorf("marshalling chunks: %w", err)
	}
	completed, err := json.Marshal(s.CompletedChunkIndices)
	if err != nil {
		return fmt.Errorf("marshalling completed set: %w", err)
	}

	query := `INSERT INTO transfer_sessions
			(file_id, session_id, upload_id, file_name, file_size, chunk_size,
			 total_chunks, chunks, completed, progress, status, started_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			session_id = excluded.session_id,
			upload_id = excluded.upload_id,
			file_name = excluded.file_name,
			file_size = excluded.file_size,
			chunk_size = excluded.chunk_size,
			total_chunks = excluded.total_chunks,
			chunks = excluded.chunks,
			completed = excluded.completed,
			progress = excluded.progress,
			status = excluded.status,
			started_at = excluded.started_at,
			expires_at = excluded.expires_at
	`
	_, err = r.db.ExecContext(ctx, query,
		s.FileID, s.SessionID, s.UploadID, s.FileName, s.FileSize, s.ChunkSize,
		s.TotalChunks, chunks, completed, s.ProgressPercent, string(s.Status),
		s.StartedAt.UnixMilli(), s.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

func scanSession(row interface{ Scan(...any) error }) (*models.TransferSession, error) {
	var s models.TransferSession
	var chunks, completed []byte
	var status string
	var startedAt, expiresAt int64

	err := row.Scan(&s.FileID, &s.SessionID, &s.UploadID, &s.FileName, &s.FileSize,
		&s.ChunkSize, &s.TotalChunks, &chunks, &completed, &s.ProgressPercent,
		&status, &startedAt, &expiresAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(chunks, &s.Chunks); err != nil {
		return nil, fmt.Errorf("unmarshalling chunks: %w", err)
	}
	if err := json.Unmarshal(completed, &s.CompletedChunkIndices); err != nil {
		return nil, fmt.Errorf("unmarshalling completed set: %w", err)
	}
	s.Status = models.SessionStatus(status)
	s.StartedAt = time.UnixMilli(startedAt)
	s.ExpiresAt = time.UnixMilli(expiresAt)
	return &s, nil
}

const selectColumns = `file_id, session_id, upload_id, file_name, file_size, chunk_size,
	total_chunks, chunks, completed, progress, status, started_at, expires_at`

func (r *SQLiteRepository) GetByFileID(ctx context.Context, fileID string) (*models.TransferSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM transfer_sessions WHERE file_id = ?`, fileID)

	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select session: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.TransferSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM transfer_sessions ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to select sessions: %w", err)
	}
	defer rows.Close()

	var result []*models.TransferSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) DeleteByFileID(ctx context.Context, fileID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transfer_sessions WHERE file_id = ?`, fileID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) PruneExpired(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM transfer_sessions WHERE expires_at > 0 AND expires_at < ?`, now.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to prune sessions: %w", err)
	}
	return nil
}
