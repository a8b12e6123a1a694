package config

import "time"

type SessionConfig interface {
	GetSessionTimeout() time.Duration
	GetSensitiveActionTimeout() time.Duration
	GetWarningTime() time.Duration
	GetMonitorInterval() time.Duration
}

type Session struct {
	Timeout                time.Duration `yaml:"timeout"`
	SensitiveActionTimeout time.Duration `yaml:"sensitive_action_timeout"`
	WarningTime            time.Duration `yaml:"warning_time"`
	MonitorInterval        time.Duration `yaml:"monitor_interval"`
}

var _ SessionConfig = Session{}

func defaultSession() Session {
	return Session{
		Timeout:                30 * time.Minute,
		SensitiveActionTimeout: 5 * time.Minute,
		WarningTime:            2 * time.Minute,
		MonitorInterval:        10 * time.Second,
	}
}

func (s *Session) overlay(v *ValidationError) {
	v.overlayDuration("SESSION_TIMEOUT", &s.Timeout)
	v.overlayDuration("SENSITIVE_ACTION_TIMEOUT", &s.SensitiveActionTimeout)
	v.overlayDuration("SESSION_WARNING_TIME", &s.WarningTime)
	v.overlayDuration("SESSION_MONITOR_INTERVAL", &s.MonitorInterval)
}

func (s Session) validate(v *ValidationError) {
	v.positive("session.timeout", s.Timeout)
	v.positive("session.sensitive_action_timeout", s.SensitiveActionTimeout)
	v.positive("session.monitor_interval", s.MonitorInterval)

	switch {
	case s.WarningTime < 0:
		v.add("session.warning_time", "must not be negative, got %s", s.WarningTime)
	case s.Timeout > 0 && s.WarningTime >= s.Timeout:
		v.add("session.warning_time", "must be shorter than session.timeout (%s), got %s", s.Timeout, s.WarningTime)
	}
	if s.Timeout > 0 && s.SensitiveActionTimeout > s.Timeout {
		v.add("session.sensitive_action_timeout", "must not exceed session.timeout (%s), got %s", s.Timeout, s.SensitiveActionTimeout)
	}
}

func (s Session) GetSessionTimeout() time.Duration {
	return s.Timeout
}

func (s Session) GetSensitiveActionTimeout() time.Duration {
	return s.SensitiveActionTimeout
}

func (s Session) GetWarningTime() time.Duration {
	return s.WarningTime
}

func (s Session) GetMonitorInterval() time.Duration {
	return s.MonitorInterval
}
