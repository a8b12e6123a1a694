package sessions_test

import (
	"testing"
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/clock"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/sessions"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	c := clock.NewFake(epoch)
	r := sessions.NewRegistry(sessions.DefaultConfig(), sessions.WithClock(c), sessions.WithLogger(zerolog.Nop()))

	t.Run("lazily constructs and reuses", func(t *testing.T) {
		_, ok := r.Lookup("surface-a")
		require.False(t, ok)

		a := r.Get("surface-a")
		require.Same(t, a, r.Get("surface-a"))
		require.NotSame(t, a, r.Get("surface-b"))
		require.Equal(t, 2, r.Len())
	})

	t.Run("instances are isolated", func(t *testing.T) {
		r.Get("surface-a").MarkSensitiveAuth()
		require.True(t, r.Get("surface-a").CanPerformSensitiveAction())
		require.False(t, r.Get("surface-b").CanPerformSensitiveAction())
	})

	t.Run("reset reinitialises in place", func(t *testing.T) {
		a := r.Get("surface-a")
		r.Reset("surface-a")
		require.Same(t, a, r.Get("surface-a"))
		require.False(t, a.CanPerformSensitiveAction())

		r.Reset("unknown")
		require.Equal(t, 2, r.Len())
	})

	t.Run("remove stops monitoring", func(t *testing.T) {
		b := r.Get("surface-b")
		b.StartMonitoring(time.Second)
		require.Equal(t, 1, c.ActiveTickers())

		r.Remove("surface-b")
		r.Remove("surface-b")
		require.False(t, b.IsMonitoring())
		require.Equal(t, 0, c.ActiveTickers())
		require.Equal(t, 1, r.Len())
	})

	t.Run("close tears everything down", func(t *testing.T) {
		r.Get("surface-a").StartMonitoring(time.Second)
		r.Close()
		require.Zero(t, r.Len())
		require.Equal(t, 0, c.ActiveTickers())
	})
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, sessions.DefaultConfig().Validate())

	t.Run("warning must be shorter than session", func(t *testing.T) {
		cfg := sessions.DefaultConfig()
		cfg.WarningTime = cfg.SessionTimeout
		require.ErrorContains(t, cfg.Validate(), "must be shorter")
	})

	t.Run("timeouts must be positive", func(t *testing.T) {
		cfg := sessions.DefaultConfig()
		cfg.SensitiveActionTimeout = 0
		require.ErrorContains(t, cfg.Validate(), "sensitive action timeout")
	})
}
