package activity

import (
	"time"

	"golang.org/x/time/rate"
)

// DefaultThrottleWindow bounds how often signals refresh the session.
const DefaultThrottleWindow = 30 * time.Second

// Throttle admits at most one event per window. It is a leaky bucket of
// size one over the caller's clock, not a per-event timer.
type Throttle struct {
	limiter *rate.Limiter
}

func NewThrottle(window time.Duration) *Throttle {
	if window <= 0 {
		window = DefaultThrottleWindow
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(window), 1)}
}

// Allow reports whether an event at now may pass.
func (t *Throttle) Allow(now time.Time) bool {
	return t.limiter.AllowN(now, 1)
}
