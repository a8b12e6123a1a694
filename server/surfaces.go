package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/activity"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/identity"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/sessions"
	"github.com/rs/zerolog/log"
)

// surface is one browser's view of the storefront, identified by the
// surface cookie. It owns the session timers, the signed-in identity and the
// activity binding between them.
type surface struct {
	id       string
	manager  *sessions.Manager
	identity *identity.Session
	bus      *activity.Bus
	orch     *activity.Orchestrator

	unsubscribe    func()
	warningPending atomic.Bool
	lastSeen       atomic.Int64 // unix nanos
}

func (sf *surface) touch(now time.Time) {
	sf.lastSeen.Store(now.UnixNano())
}

func (sf *surface) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, sf.lastSeen.Load()))
}

func (sf *surface) close() {
	sf.unsubscribe()
	sf.orch.Close()
	sf.manager.StopMonitoring()
}

type surfaceRegistry struct {
	mu       sync.Mutex
	surfaces map[string]*surface
}

func newSurfaceRegistry() *surfaceRegistry {
	return &surfaceRegistry{surfaces: make(map[string]*surface)}
}

// getOrCreate returns the surface for id, building it with build on first
// use.
func (r *surfaceRegistry) getOrCreate(id string, build func() *surface) *surface {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sf, ok := r.surfaces[id]; ok {
		return sf
	}
	sf := build()
	r.surfaces[id] = sf
	return sf
}

// removeIf deletes and returns every surface matching pred.
func (r *surfaceRegistry) removeIf(pred func(*surface) bool) []*surface {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*surface
	for id, sf := range r.surfaces {
		if pred(sf) {
			delete(r.surfaces, id)
			removed = append(removed, sf)
		}
	}
	return removed
}

func (r *surfaceRegistry) drain() []*surface {
	return r.removeIf(func(*surface) bool { return true })
}

func (r *surfaceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.surfaces)
}

// surface returns the live surface for id, creating and starting it if
// needed.
func (s *Server) surface(id string) *surface {
	sf := s.surfaces.getOrCreate(id, func() *surface {
		return s.newSurface(id)
	})
	sf.touch(s.clock.Now())
	return sf
}

// newSurface builds a started surface, stamped as seen before it is
// registered so a concurrent prune never treats it as idle.
func (s *Server) newSurface(id string) *surface {
	sf := &surface{
		id:       id,
		manager:  s.sessions.Get(id),
		identity: identity.NewSession(log.Logger.With().Str("surface", id).Logger()),
		bus:      activity.NewBus(),
	}
	sf.touch(s.clock.Now())
	sf.orch = activity.New(sf.manager, sf.identity, sf.bus,
		activity.WithClock(s.clock),
		activity.WithMonitorInterval(s.config.GetMonitorInterval()),
		activity.WithThrottleWindow(s.throttleWindow),
		activity.WithWarningHandler(func(remaining time.Duration) {
			sf.warningPending.Store(true)
			log.Info().Str("surface", id).Dur("remaining", remaining).Msg("session about to expire")
		}),
	)
	sf.unsubscribe = sf.identity.Subscribe(func(authenticated bool) {
		if authenticated {
			return
		}
		sf.warningPending.Store(false)
		if err := s.loginSessions.Delete(id); err != nil {
			log.Err(err).Str("surface", id).Msg("failed to delete login session")
		}
	})
	sf.orch.Start()
	return sf
}

// PruneSurfaces drops surfaces nobody is signed in on that have been idle
// for longer than the session timeout. It returns how many it removed.
func (s *Server) PruneSurfaces() int {
	now := s.clock.Now()
	idleLimit := s.config.GetSessionTimeout()

	removed := s.surfaces.removeIf(func(sf *surface) bool {
		return !sf.identity.Authenticated() && sf.idleSince(now) >= idleLimit
	})
	for _, sf := range removed {
		sf.close()
		s.sessions.Remove(sf.id)
		_ = s.loginSessions.Delete(sf.id)
	}
	return len(removed)
}
