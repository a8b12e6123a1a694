// Package identity defines how the storefront learns who is signed in. The
// providers in its subpackages prove an identity; Session holds the result
// for one UI surface and exposes it as an observable flag.
package identity

import (
	"context"
	"time"
)

// Method names the proof a principal used to sign in.
type Method string

const (
	MethodEmailLink Method = "email_link"
	MethodWallet    Method = "wallet"
	MethodOIDC      Method = "oidc"
)

// Principal is an authenticated identity.
type Principal struct {
	Subject         string    `json:"subject"`
	Method          Method    `json:"method"`
	Email           string    `json:"email,omitempty"`
	Address         string    `json:"address,omitempty"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
}

type Status string

const (
	// StatusPending means the provider needs a second step (a clicked
	// link, a signed challenge, an IdP redirect) before sign-in completes.
	StatusPending       Status = "pending"
	StatusAuthenticated Status = "authenticated"
	StatusSignedOut     Status = "signed_out"
)

// Outcome reports the result of a login or logout call.
type Outcome struct {
	Status      Status     `json:"status"`
	Principal   *Principal `json:"principal,omitempty"`
	Challenge   string     `json:"challenge,omitempty"`
	RedirectURL string     `json:"redirect_url,omitempty"`
}

// Provider starts a login for one method.
type Provider interface {
	Method() Method
	Login(ctx context.Context, identifier string) (Outcome, error)
}

type surfaceContextKey struct{}

// ContextWithSurface tags ctx with the UI surface a login belongs to.
func ContextWithSurface(ctx context.Context, surfaceID string) context.Context {
	return context.WithValue(ctx, surfaceContextKey{}, surfaceID)
}

func SurfaceFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(surfaceContextKey{}).(string)
	return id, ok && id != ""
}
