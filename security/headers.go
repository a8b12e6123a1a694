// Package security builds the per-response browser security boundary: the
// CSP nonce and the fixed set of security headers.
package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Third-party hosts the storefront's payment and identity SDKs load from.
var (
	PaymentScriptHosts = []string{"https://js.stripe.com"}
	PaymentFrameHosts  = []string{"https://js.stripe.com", "https://hooks.stripe.com"}

	IdentityScriptHosts = []string{"https://auth.magic.link"}
	IdentityFrameHosts  = []string{"https://auth.magic.link"}
)

// DefaultHSTSMaxAge is two years, the minimum accepted for preload lists.
const DefaultHSTSMaxAge = 2 * 365 * 24 * time.Hour

// permissionsPolicy disables every capability except payment on our origin.
var permissionsPolicy = []string{
	"accelerometer=()",
	"ambient-light-sensor=()",
	"autoplay=()",
	"battery=()",
	"bluetooth=()",
	"camera=()",
	"display-capture=()",
	"document-domain=()",
	"encrypted-media=()",
	"fullscreen=()",
	"gamepad=()",
	"geolocation=()",
	"gyroscope=()",
	"hid=()",
	"idle-detection=()",
	"magnetometer=()",
	"microphone=()",
	"midi=()",
	"payment=(self)",
	"picture-in-picture=()",
	"publickey-credentials-get=()",
	"screen-wake-lock=()",
	"serial=()",
	"usb=()",
	"xr-spatial-tracking=()",
}

// Header is a single name/value pair.
type Header struct {
	Name  string
	Value string
}

// HeaderSet is an ordered list of response headers.
type HeaderSet []Header

func (h HeaderSet) Get(name string) string {
	for _, header := range h {
		if http.CanonicalHeaderKey(header.Name) == http.CanonicalHeaderKey(name) {
			return header.Value
		}
	}
	return ""
}

// Apply sets every header on dst, replacing existing values.
func (h HeaderSet) Apply(dst http.Header) {
	for _, header := range h {
		dst.Set(header.Name, header.Value)
	}
}

func (h HeaderSet) Map() map[string]string {
	m := make(map[string]string, len(h))
	for _, header := range h {
		m[header.Name] = header.Value
	}
	return m
}

// HeaderBuilder assembles the security headers for a response. The output
// depends only on the nonce and the builder's immutable inputs.
type HeaderBuilder struct {
	origins     OriginList
	scriptHosts []string
	frameHosts  []string
	hstsMaxAge  time.Duration
}

type BuilderOption func(*HeaderBuilder)

func WithHSTSMaxAge(d time.Duration) BuilderOption {
	return func(b *HeaderBuilder) {
		if d > 0 {
			b.hstsMaxAge = d
		}
	}
}

func NewHeaderBuilder(origins OriginList, opts ...BuilderOption) *HeaderBuilder {
	b := &HeaderBuilder{
		// Normalize again so a hand-built OriginList cannot smuggle in blanks.
		origins:     NewOriginList(origins...),
		scriptHosts: concat(PaymentScriptHosts, IdentityScriptHosts),
		frameHosts:  NewOriginList(concat(PaymentFrameHosts, IdentityFrameHosts)...),
		hstsMaxAge:  DefaultHSTSMaxAge,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the headers for one response carrying nonce n.
func (b *HeaderBuilder) Build(n Nonce) HeaderSet {
	return HeaderSet{
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Cross-Origin-Opener-Policy", "same-origin"},
		{"Cross-Origin-Embedder-Policy", "require-corp"},
		{"Cross-Origin-Resource-Policy", "same-site"},
		{"Content-Security-Policy", b.ContentSecurityPolicy(n)},
		{"Permissions-Policy", strings.Join(permissionsPolicy, ", ")},
		{"Strict-Transport-Security", b.strictTransportSecurity()},
	}
}

// ContentSecurityPolicy renders the CSP. Directive order is fixed; only the
// script-src nonce token varies between responses.
func (b *HeaderBuilder) ContentSecurityPolicy(n Nonce) string {
	script := []string{"'self'"}
	if n != "" {
		script = append(script, "'nonce-"+n.String()+"'")
	}
	// The payment and identity SDKs inject inline bootstrap code and eval.
	script = append(script, "'unsafe-inline'", "'unsafe-eval'")
	script = append(script, b.scriptHosts...)

	directives := [][]string{
		{"default-src", "'self'"},
		append([]string{"script-src"}, script...),
		{"style-src", "'self'", "'unsafe-inline'"},
		{"img-src", "'self'", "data:", "blob:", "https:"},
		{"font-src", "'self'"},
		append([]string{"connect-src", "'self'"}, b.origins...),
		{"media-src", "'self'"},
		{"object-src", "'none'"},
		append([]string{"frame-src"}, b.frameHosts...),
		{"base-uri", "'self'"},
		{"form-action", "'self'"},
		{"frame-ancestors", "'none'"},
		{"upgrade-insecure-requests"},
		{"block-all-mixed-content"},
	}

	parts := make([]string, 0, len(directives))
	for _, d := range directives {
		parts = append(parts, strings.Join(d, " "))
	}
	return strings.Join(parts, "; ")
}

func (b *HeaderBuilder) strictTransportSecurity() string {
	seconds := int64(b.hstsMaxAge / time.Second)
	return "max-age=" + strconv.FormatInt(seconds, 10) + "; includeSubDomains; preload"
}

// BuildHeaders is the one-shot form of NewHeaderBuilder(origins).Build(n).
func BuildHeaders(n Nonce, origins OriginList) HeaderSet {
	return NewHeaderBuilder(origins).Build(n)
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
