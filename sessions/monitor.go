package sessions

import (
	"sync"
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/clock"
)

// StopFunc cancels a monitoring loop. Calling it more than once, or after the
// loop stopped on its own, is a no-op.
type StopFunc func()

type monitor struct {
	ticker clock.Ticker
	done   chan struct{}
	once   sync.Once
}

func (mon *monitor) stop() {
	mon.once.Do(func() {
		mon.ticker.Stop()
		close(mon.done)
	})
}

func (mon *monitor) stopped() bool {
	select {
	case <-mon.done:
		return true
	default:
		return false
	}
}

// StartMonitoring checks the session every interval. When the session is no
// longer valid the expiry callback runs once and the loop ends for good;
// otherwise the warning callback runs whenever ShouldShowWarning latches.
//
// Only one loop runs per Manager: calling StartMonitoring while a loop is
// alive returns that loop's StopFunc.
func (m *Manager) StartMonitoring(interval time.Duration) StopFunc {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}

	m.mu.Lock()
	if m.monitor != nil && !m.monitor.stopped() {
		running := m.monitor
		m.mu.Unlock()
		m.log.Warn().Msg("monitoring already running, reusing existing loop")
		return running.stop
	}

	mon := &monitor{
		ticker: m.clock.NewTicker(interval),
		done:   make(chan struct{}),
	}
	m.monitor = mon
	m.mu.Unlock()

	m.log.Debug().Dur("interval", interval).Msg("session monitoring started")
	go m.runMonitor(mon)
	return mon.stop
}

// StopMonitoring stops the current loop, if any.
func (m *Manager) StopMonitoring() {
	m.mu.Lock()
	mon := m.monitor
	m.mu.Unlock()

	if mon != nil {
		mon.stop()
	}
}

// IsMonitoring reports whether a monitoring loop is alive.
func (m *Manager) IsMonitoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monitor != nil && !m.monitor.stopped()
}

func (m *Manager) runMonitor(mon *monitor) {
	for {
		select {
		case <-mon.done:
			return
		case <-mon.ticker.C():
			if !m.tick(mon) {
				return
			}
		}
	}
}

// tick runs one check and reports whether the loop should keep going.
func (m *Manager) tick(mon *monitor) bool {
	m.mu.Lock()
	if mon.stopped() {
		m.mu.Unlock()
		return false
	}

	now := m.clock.Now()
	if !m.isValidLocked(now) {
		idle := now.Sub(m.lastActivity)
		expired := m.onExpired
		m.mu.Unlock()

		// Terminal: the ticker is released before the callback runs so a
		// callback that restarts monitoring gets a fresh loop.
		mon.stop()
		m.log.Warn().Dur("idle", idle).Msg("session expired")
		if expired != nil {
			expired()
		}
		return false
	}

	if m.shouldWarnLocked(now) {
		remaining := m.untilExpiryLocked(now)
		warn := m.onWarning
		m.mu.Unlock()

		m.log.Info().Dur("remaining", remaining).Msg("session timeout warning")
		if warn != nil {
			warn()
		}
		return true
	}

	m.mu.Unlock()
	return true
}
