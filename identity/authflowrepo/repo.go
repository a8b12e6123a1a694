// Package authflowrepo keeps the short-lived state of redirect-based logins
// between the authorization redirect and the callback.
package authflowrepo

import "time"

// AuthFlowState is what the callback needs to finish a login it started.
type AuthFlowState struct {
	SurfaceID    string
	CodeVerifier string
	Nonce        string
	LoginHint    string
	CreatedAt    time.Time
}

type Repo interface {
	Upsert(state string, authState *AuthFlowState) error
	// Take returns the state and removes it, so each state is usable once.
	Take(state string) (*AuthFlowState, error)
	Delete(state string) error
	// PruneBefore drops every state created before cutoff and reports how
	// many it removed.
	PruneBefore(cutoff time.Time) int
}
