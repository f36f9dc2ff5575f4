package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/sendvault/internal/client/models"
	"github.com/dmitrijs2005/sendvault/internal/common"
)

// InMemoryRepository is a map-backed Repository used in tests and as a
// fallback when no database path is configured. Sessions stored here do not
// survive a process restart.
type InMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]models.TransferSession
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{sessions: make(map[string]models.TransferSession)}
}

func (r *InMemoryRepository) Save(_ context.Context, s *models.TransferSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.FileID] = *s
	return nil
}

func (r *InMemoryRepository) GetByFileID(_ context.Context, fileID string) (*models.TransferSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[fileID]
	if !ok {
		return nil, common.ErrSessionNotFound
	}
	copied := s
	return &copied, nil
}

func (r *InMemoryRepository) GetAll(_ context.Context) ([]*models.TransferSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*models.TransferSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		copied := s
		result = append(result, &copied)
	}
	return result, nil
}

func (r *InMemoryRepository) DeleteByFileID(_ context.Context, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, fileID)
	return nil
}

func (r *InMemoryRepository) PruneExpired(_ context.Context, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
		}
	}
	return nil
}
