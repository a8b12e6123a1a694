package sessions

import (
	"fmt"
	"time"
)

const (
	DefaultSessionTimeout         = 30 * time.Minute
	DefaultSensitiveActionTimeout = 5 * time.Minute
	DefaultWarningTime            = 2 * time.Minute
	DefaultMonitorInterval        = 10 * time.Second
)

// Config holds the immutable timer settings of a Manager.
type Config struct {
	// SessionTimeout is how long a session stays valid without activity.
	SessionTimeout time.Duration
	// SensitiveActionTimeout is how long a re-authentication authorizes
	// sensitive operations (payments, profile changes, wallet linking).
	SensitiveActionTimeout time.Duration
	// WarningTime is how close to expiry the timeout warning fires.
	// Must be shorter than SessionTimeout.
	WarningTime time.Duration
}

func DefaultConfig() Config {
	return Config{
		SessionTimeout:         DefaultSessionTimeout,
		SensitiveActionTimeout: DefaultSensitiveActionTimeout,
		WarningTime:            DefaultWarningTime,
	}
}

// Validate is used by the configuration loader; a Manager trusts its Config.
func (c Config) Validate() error {
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("session timeout must be positive, got %v", c.SessionTimeout)
	}
	if c.SensitiveActionTimeout <= 0 {
		return fmt.Errorf("sensitive action timeout must be positive, got %v", c.SensitiveActionTimeout)
	}
	if c.WarningTime < 0 {
		return fmt.Errorf("warning time must not be negative, got %v", c.WarningTime)
	}
	if c.WarningTime >= c.SessionTimeout {
		return fmt.Errorf("warning time %v must be shorter than session timeout %v", c.WarningTime, c.SessionTimeout)
	}
	return nil
}
