package sessions_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/sessions"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func notify(ch chan<- struct{}) func() {
	return func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func TestMonitor_Scenario(t *testing.T) {
	m, c := newTestManager(t, sessions.Config{
		SessionTimeout:         ms(60000),
		SensitiveActionTimeout: ms(15000),
		WarningTime:            ms(5000),
	})

	var warnings, expiries atomic.Int32
	warned := make(chan struct{}, 1)
	expired := make(chan struct{}, 1)
	m.OnTimeoutWarning(func() {
		warnings.Add(1)
		notify(warned)()
	})
	m.OnSessionExpired(func() {
		expiries.Add(1)
		notify(expired)()
	})

	m.MarkSensitiveAuth()
	stop := m.StartMonitoring(time.Second)
	defer stop()

	c.Advance(ms(14000))
	require.True(t, m.CanPerformSensitiveAction())

	c.Advance(ms(2000))
	require.False(t, m.CanPerformSensitiveAction())
	require.True(t, m.IsSessionValid())

	c.Advance(ms(40000))
	waitFor(t, warned, "timeout warning")

	c.Advance(ms(4001))
	waitFor(t, expired, "session expiry")
	require.False(t, m.IsMonitoring())
	require.Equal(t, 0, c.ActiveTickers(), "no ticker survives expiry")

	c.Advance(ms(10000))
	require.Never(t, func() bool { return expiries.Load() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
	require.Equal(t, int32(1), warnings.Load())
	require.Equal(t, int32(1), expiries.Load())

	stop()
	stop()
}

func TestMonitor_SingleLoop(t *testing.T) {
	m, c := newTestManager(t, sessions.DefaultConfig())

	stop1 := m.StartMonitoring(time.Second)
	stop2 := m.StartMonitoring(time.Second)
	require.Equal(t, 1, c.ActiveTickers(), "second start must not add a timer")
	require.True(t, m.IsMonitoring())

	stop2()
	require.False(t, m.IsMonitoring(), "both handles control the same loop")
	require.Equal(t, 0, c.ActiveTickers())
	stop1()

	stop3 := m.StartMonitoring(time.Second)
	require.True(t, m.IsMonitoring(), "a stopped loop can be replaced")
	stop3()
}

func TestMonitor_StopBeforeExpiry(t *testing.T) {
	m, c := newTestManager(t, sessions.Config{
		SessionTimeout:         ms(1000),
		SensitiveActionTimeout: ms(1000),
		WarningTime:            ms(100),
	})

	var expiries atomic.Int32
	m.OnSessionExpired(func() { expiries.Add(1) })

	stop := m.StartMonitoring(ms(100))
	stop()
	m.StopMonitoring()

	c.Advance(ms(5000))
	require.Never(t, func() bool { return expiries.Load() > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestMonitor_LastCallbackWins(t *testing.T) {
	m, c := newTestManager(t, sessions.Config{
		SessionTimeout:         ms(1000),
		SensitiveActionTimeout: ms(1000),
		WarningTime:            ms(100),
	})

	var first atomic.Int32
	second := make(chan struct{}, 1)
	m.OnSessionExpired(func() { first.Add(1) })
	m.OnSessionExpired(notify(second))

	stop := m.StartMonitoring(ms(500))
	defer stop()

	c.Advance(ms(1500))
	waitFor(t, second, "replacement expiry callback")
	require.Zero(t, first.Load())
}

func TestMonitor_ReentrantWarningHandler(t *testing.T) {
	m, c := newTestManager(t, sessions.Config{
		SessionTimeout:         ms(10000),
		SensitiveActionTimeout: ms(1000),
		WarningTime:            ms(3000),
	})

	warned := make(chan struct{}, 1)
	var expiries atomic.Int32
	m.OnTimeoutWarning(func() {
		// A handler that keeps the session alive calls straight back in.
		m.UpdateActivity()
		_ = m.StartMonitoring(time.Second)
		notify(warned)()
	})
	m.OnSessionExpired(func() { expiries.Add(1) })

	stop := m.StartMonitoring(time.Second)
	defer stop()

	c.Advance(ms(8000))
	waitFor(t, warned, "warning")
	require.Equal(t, 1, c.ActiveTickers(), "re-entrant start reused the running loop")
	require.Equal(t, ms(10000), m.TimeUntilExpiry())

	c.Advance(ms(5000))
	require.Never(t, func() bool { return expiries.Load() > 0 }, 100*time.Millisecond, 10*time.Millisecond)
	require.True(t, m.IsMonitoring())
}
