// Package sessions persists transfer sessions keyed by deterministic file
// identity. The live envelope source and key material never pass through
// here.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/sendvault/internal/client/models"
)

// Repository is the session store injected into the transfer manager.
// Implementations must treat Save as an upsert.
type Repository interface {
	Save(ctx context.Context, s *models.TransferSession) error
	GetByFileID(ctx context.Context, fileID string) (*models.TransferSession, error)
	GetAll(ctx context.Context) ([]*models.TransferSession, error)
	DeleteByFileID(ctx context.Context, fileID string) error

	// PruneExpired removes sessions whose server-side lifetime has passed,
	// so callers never observe an expired session.
	PruneExpired(ctx context.Context, now time.Time) error
}
