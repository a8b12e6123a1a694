// Package sessions tracks session and sensitive-action trust windows.
package sessions

import (
	"sync"
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Manager tracks how long an authentication stays trusted. It keeps two
// windows: the general session, slid forward by activity, and the narrower
// sensitive-action window opened by a fresh re-authentication.
//
// All state is owned by the Manager and only changes through its methods.
// Callbacks are always invoked without the internal lock held, so they may
// call back into the Manager.
type Manager struct {
	cfg   Config
	clock clock.Clock
	log   zerolog.Logger

	mu                sync.Mutex
	sessionStart      time.Time
	lastActivity      time.Time
	lastSensitiveAuth time.Time
	hasSensitiveAuth  bool
	warningShown      bool

	onWarning func()
	onExpired func()
	monitor   *monitor
}

type Option func(*Manager)

func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// NewManager starts a fresh session at the current time.
func NewManager(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:   cfg,
		clock: clock.Real{},
		log:   log.Logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With().Str("component", "sessions").Logger()

	now := m.clock.Now()
	m.sessionStart = now
	m.lastActivity = now

	m.log.Info().
		Dur("session_timeout", cfg.SessionTimeout).
		Dur("sensitive_action_timeout", cfg.SensitiveActionTimeout).
		Dur("warning_time", cfg.WarningTime).
		Msg("session manager initialised")
	return m
}

func (m *Manager) Config() Config {
	return m.cfg
}

// UpdateActivity slides the session window forward and re-arms the warning.
func (m *Manager) UpdateActivity() {
	m.mu.Lock()
	m.touchLocked(m.clock.Now())
	m.mu.Unlock()

	m.log.Debug().Msg("activity recorded")
}

// MarkSensitiveAuth records a fresh re-authentication. It also counts as
// activity.
func (m *Manager) MarkSensitiveAuth() {
	m.mu.Lock()
	now := m.clock.Now()
	m.lastSensitiveAuth = now
	m.hasSensitiveAuth = true
	m.touchLocked(now)
	m.mu.Unlock()

	m.log.Info().Msg("sensitive authentication recorded")
}

func (m *Manager) touchLocked(now time.Time) {
	if now.Before(m.sessionStart) {
		now = m.sessionStart
	}
	m.lastActivity = now
	m.warningShown = false
}

func (m *Manager) IsSessionValid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isValidLocked(m.clock.Now())
}

func (m *Manager) isValidLocked(now time.Time) bool {
	return now.Sub(m.lastActivity) < m.cfg.SessionTimeout
}

// CanPerformSensitiveAction reports whether the last re-authentication is
// recent enough for a sensitive operation. False until MarkSensitiveAuth has
// been called at least once since the last reset.
func (m *Manager) CanPerformSensitiveAction() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasSensitiveAuth {
		return false
	}
	return m.clock.Now().Sub(m.lastSensitiveAuth) < m.cfg.SensitiveActionTimeout
}

// TimeUntilExpiry never returns a negative duration.
func (m *Manager) TimeUntilExpiry() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.untilExpiryLocked(m.clock.Now())
}

func (m *Manager) untilExpiryLocked(now time.Time) time.Duration {
	return nonNegative(m.cfg.SessionTimeout - now.Sub(m.lastActivity))
}

func (m *Manager) TimeUntilSensitiveExpiry() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.untilSensitiveExpiryLocked(m.clock.Now())
}

func (m *Manager) untilSensitiveExpiryLocked(now time.Time) time.Duration {
	if !m.hasSensitiveAuth {
		return 0
	}
	return nonNegative(m.cfg.SensitiveActionTimeout - now.Sub(m.lastSensitiveAuth))
}

// ShouldShowWarning is a one-shot latch: it returns true the first time it is
// polled inside the warning window and false afterwards until the next
// activity or reset.
func (m *Manager) ShouldShowWarning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shouldWarnLocked(m.clock.Now())
}

func (m *Manager) shouldWarnLocked(now time.Time) bool {
	if m.warningShown || m.untilExpiryLocked(now) > m.cfg.WarningTime {
		return false
	}
	m.warningShown = true
	return true
}

// OnTimeoutWarning sets the single warning callback. A later registration
// replaces the earlier one.
func (m *Manager) OnTimeoutWarning(cb func()) {
	m.mu.Lock()
	replaced := m.onWarning != nil
	m.onWarning = cb
	m.mu.Unlock()

	if replaced {
		m.log.Debug().Msg("timeout warning callback replaced")
	}
}

// OnSessionExpired sets the single expiry callback. A later registration
// replaces the earlier one.
func (m *Manager) OnSessionExpired(cb func()) {
	m.mu.Lock()
	replaced := m.onExpired != nil
	m.onExpired = cb
	m.mu.Unlock()

	if replaced {
		m.log.Debug().Msg("session expired callback replaced")
	}
}

// ResetSession reinitialises the session as if it had just been created.
// A running monitor keeps running.
func (m *Manager) ResetSession() {
	m.mu.Lock()
	now := m.clock.Now()
	m.sessionStart = now
	m.lastActivity = now
	m.lastSensitiveAuth = time.Time{}
	m.hasSensitiveAuth = false
	m.warningShown = false
	m.mu.Unlock()

	m.log.Info().Msg("session reset")
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
