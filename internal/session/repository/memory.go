package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"lexgate/backend/internal/session/domain"
)

// MemoryRepository is an in-process session authority for development and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	nowF     func() time.Time
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]domain.Session),
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a copy of s. An empty status is stored as active.
func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) error {
	cp := *s
	if cp.Status == "" {
		cp.Status = domain.StatusActive
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = r.nowF()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[cp.ID] = cp
	return nil
}

// RegisterIfAbsent stores s as active unless a session with its id already exists in any status.
func (r *MemoryRepository) RegisterIfAbsent(ctx context.Context, s *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; ok {
		return nil
	}
	cp := *s
	cp.Status = domain.StatusActive
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = r.nowF()
	}
	r.sessions[cp.ID] = cp
	return nil
}

// GetByID returns a copy of the session, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// ListActiveByUser returns copies of the user's active sessions, oldest first.
func (r *MemoryRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []*domain.Session
	for _, s := range r.sessions {
		if s.UserID == userID && s.Status == domain.StatusActive {
			cp := s
			out = append(out, &cp)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Revoke marks the session revoked; revoked and unknown sessions are left untouched.
func (r *MemoryRepository) Revoke(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.Status == domain.StatusRevoked {
		return nil
	}
	now := r.nowF()
	s.Status = domain.StatusRevoked
	s.RevokedAt = &now
	r.sessions[id] = s
	return nil
}
