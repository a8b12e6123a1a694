package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type SecurityConfig interface {
	GetTrustedOrigins() []string
	GetHSTSMaxAge() time.Duration
}

type Security struct {
	TrustedOrigins []string      `yaml:"trusted_origins"`
	HSTSMaxAge     time.Duration `yaml:"hsts_max_age"`
}

var _ SecurityConfig = Security{}

func defaultSecurity() Security {
	return Security{
		HSTSMaxAge: 2 * 365 * 24 * time.Hour,
	}
}

func (s *Security) overlay(v *ValidationError) {
	if raw := GetEnv("TRUSTED_ORIGINS", ""); raw != "" {
		s.TrustedOrigins = splitList(raw)
	}
	v.overlayDuration("HSTS_MAX_AGE", &s.HSTSMaxAge)
}

// validate rejects anything that is not a bare scheme://host[:port] origin.
// Blank entries are allowed and later dropped.
func (s Security) validate(v *ValidationError) {
	for i, raw := range s.TrustedOrigins {
		origin := strings.TrimSpace(raw)
		if origin == "" {
			continue
		}
		if msg := checkOrigin(origin); msg != "" {
			v.add(fmt.Sprintf("security.trusted_origins[%d]", i), "%s", msg)
		}
	}
	v.positive("security.hsts_max_age", s.HSTSMaxAge)
}

func checkOrigin(origin string) string {
	if msg := checkHTTPURL(origin); msg != "" {
		return msg
	}
	u, _ := url.Parse(origin)
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return fmt.Sprintf("origin must not carry a path, query or credentials: %q", origin)
	}
	return ""
}

// GetTrustedOrigins returns the configured origins as written; normalization
// happens in the security package.
func (s Security) GetTrustedOrigins() []string {
	return append([]string(nil), s.TrustedOrigins...)
}

func (s Security) GetHSTSMaxAge() time.Duration {
	return s.HSTSMaxAge
}
