package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// FieldError is one invalid or missing configuration value.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every configuration problem found by Load.
type ValidationError struct {
	Errors []FieldError
}

func (v *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid configuration (%d problems):", len(v.Errors))
	for _, e := range v.Errors {
		fmt.Fprintf(&b, "\n  - %s: %s", e.Field, e.Message)
	}
	return b.String()
}

func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Fields returns the names of the offending fields in report order.
func (v *ValidationError) Fields() []string {
	fields := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}

func (v *ValidationError) add(field, format string, args ...interface{}) {
	v.Errors = append(v.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *ValidationError) positive(field string, d time.Duration) {
	if d <= 0 {
		v.add(field, "must be a positive duration, got %s", d)
	}
}

// overlayDuration replaces *dst with the environment value, if set. Bare
// integers are milliseconds.
func (v *ValidationError) overlayDuration(envVar string, dst *time.Duration) {
	raw := strings.TrimSpace(GetEnv(envVar, ""))
	if raw == "" {
		return
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*dst = time.Duration(ms) * time.Millisecond
		return
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		v.add(envVar, "invalid duration %q", raw)
		return
	}
	*dst = d
}

func overlayString(envVar string, dst *string) {
	if raw := GetEnv(envVar, ""); raw != "" {
		*dst = raw
	}
}

// splitList splits a comma separated environment value.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// checkHTTPURL reports why raw is not an absolute http(s) URL, or "".
func checkHTTPURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return err.Error()
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("scheme must be http or https in %q", raw)
	}
	if u.Host == "" {
		return fmt.Sprintf("missing host in %q", raw)
	}
	return ""
}
