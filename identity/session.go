package identity

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Session holds the signed-in principal for one UI surface. Subscribers are
// told whenever the authenticated flag flips; they run without the lock held
// and should re-read Authenticated rather than trust delivery order.
type Session struct {
	log zerolog.Logger

	mu          sync.Mutex
	principal   *Principal
	nextID      int
	subscribers map[int]func(bool)
	order       []int
}

func NewSession(logger zerolog.Logger) *Session {
	return &Session{
		log:         logger.With().Str("component", "identity").Logger(),
		subscribers: make(map[int]func(bool)),
	}
}

// SignIn records p as the surface's principal.
func (s *Session) SignIn(p Principal) Outcome {
	s.mu.Lock()
	was := s.principal != nil
	s.principal = &p
	subs := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info().Str("method", string(p.Method)).Str("subject", p.Subject).Msg("signed in")
	if !was {
		notifyAll(subs, true)
	}
	return Outcome{Status: StatusAuthenticated, Principal: &p}
}

// Logout clears the principal. Logging out an anonymous surface succeeds.
func (s *Session) Logout(ctx context.Context) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	s.mu.Lock()
	prev := s.principal
	s.principal = nil
	subs := s.snapshotLocked()
	s.mu.Unlock()

	if prev != nil {
		s.log.Info().Str("method", string(prev.Method)).Str("subject", prev.Subject).Msg("signed out")
		notifyAll(subs, false)
	}
	return Outcome{Status: StatusSignedOut}, nil
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.principal != nil
}

func (s *Session) Principal() (Principal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal == nil {
		return Principal{}, false
	}
	return *s.principal, true
}

// Subscribe registers fn for authenticated-flag changes. The returned func
// unsubscribes and may be called any number of times.
func (s *Session) Subscribe(fn func(authenticated bool)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.order = append(s.order, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			for i, candidate := range s.order {
				if candidate == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Subscribers reports how many subscriptions are live.
func (s *Session) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *Session) snapshotLocked() []func(bool) {
	subs := make([]func(bool), 0, len(s.order))
	for _, id := range s.order {
		subs = append(subs, s.subscribers[id])
	}
	return subs
}

func notifyAll(subs []func(bool), authenticated bool) {
	for _, fn := range subs {
		fn(authenticated)
	}
}
