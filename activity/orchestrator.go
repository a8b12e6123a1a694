package activity

import (
	"context"
	"sync"
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/identity"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/clock"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultLogoutTimeout bounds the identity logout issued on expiry.
const DefaultLogoutTimeout = 10 * time.Second

// Identity is the slice of an identity provider the orchestrator needs.
type Identity interface {
	Authenticated() bool
	Subscribe(fn func(authenticated bool)) (unsubscribe func())
	Logout(ctx context.Context) (identity.Outcome, error)
}

var _ Identity = (*identity.Session)(nil)

// Orchestrator keeps a Manager in step with an identity. While someone is
// signed in it feeds throttled bus signals into UpdateActivity and runs the
// monitoring loop; on expiry it logs the identity out and resets the
// session. Signing out releases the subscription and the loop; signing in
// again binds a fresh pair.
type Orchestrator struct {
	manager  *sessions.Manager
	identity Identity
	bus      *Bus
	clock    clock.Clock
	log      zerolog.Logger

	monitorInterval time.Duration
	throttleWindow  time.Duration
	logoutTimeout   time.Duration
	onWarning       func(remaining time.Duration)

	// authMu orders sign-in and sign-out against expiry handling.
	authMu sync.Mutex

	mu          sync.Mutex
	started     bool
	closed      bool
	unsubscribe func()
	bound       *binding
}

// binding is everything held while an identity is present.
type binding struct {
	unsubscribe func()
	stop        sessions.StopFunc
}

func (b *binding) release() {
	b.unsubscribe()
	b.stop()
}

type Option func(*Orchestrator)

// WithClock must match the clock the Manager was built with.
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

func WithMonitorInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.monitorInterval = d
	}
}

func WithThrottleWindow(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.throttleWindow = d
	}
}

func WithLogoutTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.logoutTimeout = d
	}
}

// WithWarningHandler is called with the time left when the session enters
// its warning window.
func WithWarningHandler(fn func(remaining time.Duration)) Option {
	return func(o *Orchestrator) {
		o.onWarning = fn
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

func New(manager *sessions.Manager, id Identity, bus *Bus, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		manager:         manager,
		identity:        id,
		bus:             bus,
		clock:           clock.Real{},
		log:             log.Logger,
		monitorInterval: sessions.DefaultMonitorInterval,
		throttleWindow:  DefaultThrottleWindow,
		logoutTimeout:   DefaultLogoutTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With().Str("component", "activity").Logger()
	return o
}

// Start registers the session callbacks, follows the identity flag and binds
// immediately if someone is already signed in. Calling Start again is a
// no-op.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	if o.started || o.closed {
		o.mu.Unlock()
		return
	}
	o.started = true
	o.mu.Unlock()

	o.manager.OnTimeoutWarning(o.handleWarning)
	o.manager.OnSessionExpired(o.handleExpired)

	unsubscribe := o.identity.Subscribe(func(bool) { o.sync() })

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		unsubscribe()
		return
	}
	o.unsubscribe = unsubscribe
	o.mu.Unlock()

	o.sync()
}

// Bound reports whether activity tracking and monitoring are attached.
func (o *Orchestrator) Bound() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bound != nil
}

// Close releases everything. It is safe to call more than once.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	unsubscribe := o.unsubscribe
	o.unsubscribe = nil
	o.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	o.detach()
	o.log.Debug().Msg("orchestrator closed")
}

// Transition runs fn with expiry handling held off. Callers that mark a fresh
// authentication or sign the identity in or out go through it, so an expiry
// detected just before never undoes their work.
func (o *Orchestrator) Transition(fn func()) {
	o.authMu.Lock()
	defer o.authMu.Unlock()
	fn()
}

// sync reconciles the binding with the current identity flag.
func (o *Orchestrator) sync() {
	if o.identity.Authenticated() {
		o.attach()
		return
	}
	o.detach()
}

func (o *Orchestrator) attach() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || o.bound != nil {
		return
	}

	throttle := NewThrottle(o.throttleWindow)
	unsubscribe := o.bus.Subscribe(func(sig Signal) {
		if throttle.Allow(o.clock.Now()) {
			o.manager.UpdateActivity()
			return
		}
		o.log.Trace().Str("signal", string(sig)).Msg("activity throttled")
	})
	o.bound = &binding{
		unsubscribe: unsubscribe,
		stop:        o.manager.StartMonitoring(o.monitorInterval),
	}
	o.log.Info().Msg("activity tracking attached")
}

func (o *Orchestrator) detach() {
	o.mu.Lock()
	b := o.bound
	o.bound = nil
	o.mu.Unlock()

	if b != nil {
		b.release()
		o.log.Info().Msg("activity tracking detached")
	}
}

func (o *Orchestrator) handleWarning() {
	remaining := o.manager.TimeUntilExpiry()
	if o.onWarning != nil {
		o.onWarning(remaining)
	}
}

// handleExpired runs on the monitor goroutine after the loop has stopped.
// A Transition that revalidated the session since the tick wins: the
// identity is kept and the binding restored.
func (o *Orchestrator) handleExpired() {
	o.authMu.Lock()
	defer o.authMu.Unlock()

	o.detach()
	if o.manager.IsSessionValid() && o.manager.CanPerformSensitiveAction() {
		o.log.Info().Msg("session revalidated before expiry was handled, keeping identity")
		o.sync()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.logoutTimeout)
	defer cancel()

	if _, err := o.identity.Logout(ctx); err != nil {
		o.log.Err(err).Msg("logout after session expiry failed")
	}
	o.manager.ResetSession()
	o.log.Info().Msg("session expired, identity signed out")
}
