package authflowrepo

import (
	"sync"
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/errors"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu     sync.Mutex
	states map[string]AuthFlowState
}

var _ Repo = (*InMemoryRepo)(nil)

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		states: make(map[string]AuthFlowState),
	}
}

// Upsert stores a copy of authState under state.
func (r *InMemoryRepo) Upsert(state string, authState *AuthFlowState) error {
	if state == "" {
		return errors.Wrapf(errors.ErrInvalidState, "state cannot be empty")
	}
	if authState == nil {
		return errors.Wrapf(errors.ErrInternal, "authState cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[state] = *authState
	return nil
}

func (r *InMemoryRepo) Take(state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, errors.Wrapf(errors.ErrInvalidState, "state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	authState, ok := r.states[state]
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidState, "state not found")
	}
	delete(r.states, state)
	return &authState, nil
}

// Delete removes a state. Deleting an unknown state is not an error.
func (r *InMemoryRepo) Delete(state string) error {
	if state == "" {
		return errors.Wrapf(errors.ErrInvalidState, "state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, state)
	return nil
}

func (r *InMemoryRepo) PruneBefore(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for state, authState := range r.states {
		if authState.CreatedAt.Before(cutoff) {
			delete(r.states, state)
			removed++
		}
	}
	return removed
}
