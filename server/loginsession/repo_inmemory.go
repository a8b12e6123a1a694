package loginsession

import (
	"sync"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/errors"
)

// InMemoryLoginSessionRepo is an in-memory implementation of Repo
type InMemoryLoginSessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session // surfaceID -> Session
}

var _ Repo = (*InMemoryLoginSessionRepo)(nil)

func NewInMemoryLoginSessionRepo() *InMemoryLoginSessionRepo {
	return &InMemoryLoginSessionRepo{
		sessions: make(map[string]Session),
	}
}

// Upsert creates or replaces the record for a surface
func (r *InMemoryLoginSessionRepo) Upsert(surfaceID string, session Session) error {
	if surfaceID == "" {
		return errors.Wrapf(errors.ErrInvalidIdentifier, "surfaceID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session.SurfaceID = surfaceID
	r.sessions[surfaceID] = session
	return nil
}

func (r *InMemoryLoginSessionRepo) Get(surfaceID string) (Session, error) {
	if surfaceID == "" {
		return Session{}, errors.Wrapf(errors.ErrInvalidIdentifier, "surfaceID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[surfaceID]
	if !ok {
		return Session{}, errors.Wrapf(errors.ErrNotFound, "login session for surface %s", surfaceID)
	}
	return session, nil
}

// Delete removes a record; a missing record is not an error
func (r *InMemoryLoginSessionRepo) Delete(surfaceID string) error {
	if surfaceID == "" {
		return errors.Wrapf(errors.ErrInvalidIdentifier, "surfaceID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, surfaceID)
	return nil
}

func (r *InMemoryLoginSessionRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
