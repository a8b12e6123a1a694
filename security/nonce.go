package security

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/errors"
)

// NonceHeader is the request header that carries the nonce from header
// construction to inline-content rendering.
const NonceHeader = "X-Nonce"

// NonceSize is the number of random bytes in a nonce (128 bits).
const NonceSize = 16

// Nonce authorizes inline scripts for exactly one response.
type Nonce string

func (n Nonce) String() string {
	return string(n)
}

// NonceProvider draws nonces from a cryptographically secure source.
type NonceProvider struct {
	entropy io.Reader
}

type NonceOption func(*NonceProvider)

// WithEntropySource replaces crypto/rand. Only tests should need this.
func WithEntropySource(r io.Reader) NonceOption {
	return func(p *NonceProvider) {
		p.entropy = r
	}
}

func NewNonceProvider(opts ...NonceOption) *NonceProvider {
	p := &NonceProvider{entropy: rand.Reader}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Generate returns a fresh nonce. A short or failed read is an error; the
// caller must reject the request rather than fall back to a weaker value.
func (p *NonceProvider) Generate() (Nonce, error) {
	b := make([]byte, NonceSize)
	if _, err := io.ReadFull(p.entropy, b); err != nil {
		return "", errors.Wrapf(errors.ErrEntropyUnavailable, "nonce generation failed: %v", err)
	}
	return Nonce(base64.StdEncoding.EncodeToString(b)), nil
}

type nonceContextKey struct{}

// ContextWithNonce stores the request's nonce for the rendering layer.
func ContextWithNonce(ctx context.Context, n Nonce) context.Context {
	return context.WithValue(ctx, nonceContextKey{}, n)
}

// NonceFromContext returns the nonce attached to the request, if any.
func NonceFromContext(ctx context.Context) (Nonce, bool) {
	n, ok := ctx.Value(nonceContextKey{}).(Nonce)
	return n, ok && n != ""
}

// NonceFromRequest returns the nonce carried in the NonceHeader request
// header. The header only counts when it matches the nonce stored in the
// request context, so a client cannot choose its own.
func NonceFromRequest(r *http.Request) (Nonce, bool) {
	n := Nonce(r.Header.Get(NonceHeader))
	want, ok := NonceFromContext(r.Context())
	if !ok || n != want {
		return "", false
	}
	return n, true
}
