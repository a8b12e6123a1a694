package sessions

import (
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/utils"
)

// Info is a diagnostic snapshot of a session. Ages are whole minutes.
type Info struct {
	SessionAgeMinutes       int  `json:"session_age_minutes"`
	IdleMinutes             int  `json:"idle_minutes"`
	SensitiveAuthAgeMinutes *int `json:"sensitive_auth_age_minutes,omitempty"`

	Valid                  bool `json:"valid"`
	SensitiveActionAllowed bool `json:"sensitive_action_allowed"`
	WarningShown           bool `json:"warning_shown"`

	TimeUntilExpiry          time.Duration `json:"-"`
	TimeUntilSensitiveExpiry time.Duration `json:"-"`
	TimeUntilExpiryMS        int64         `json:"time_until_expiry_ms"`
	TimeUntilSensitiveMS     int64         `json:"time_until_sensitive_expiry_ms"`
}

// SessionInfo returns a read-only snapshot; it never mutates the session.
func (m *Manager) SessionInfo() Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	info := Info{
		SessionAgeMinutes: wholeMinutes(now.Sub(m.sessionStart)),
		IdleMinutes:       wholeMinutes(now.Sub(m.lastActivity)),
		Valid:             m.isValidLocked(now),
		WarningShown:      m.warningShown,
		TimeUntilExpiry:   m.untilExpiryLocked(now),
	}
	if m.hasSensitiveAuth {
		info.SensitiveAuthAgeMinutes = utils.Ptr(wholeMinutes(now.Sub(m.lastSensitiveAuth)))
		info.SensitiveActionAllowed = now.Sub(m.lastSensitiveAuth) < m.cfg.SensitiveActionTimeout
	}
	info.TimeUntilSensitiveExpiry = m.untilSensitiveExpiryLocked(now)
	info.TimeUntilExpiryMS = info.TimeUntilExpiry.Milliseconds()
	info.TimeUntilSensitiveMS = info.TimeUntilSensitiveExpiry.Milliseconds()
	return info
}

func wholeMinutes(d time.Duration) int {
	return int(d.Round(time.Minute) / time.Minute)
}
