package server

import (
	"context"
	"net/http"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/identity"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/errors"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySurface stores the request's *surface
	ContextKeySurface ContextKey = "surface"
)

// SurfaceMiddleware resolves the surface cookie, issuing a new one when it
// is missing or malformed, and puts the live surface in the request context.
func (s *Server) SurfaceMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := surfaceIDFromRequest(r)
		if !ok {
			id = newSurfaceID()
			s.SetSurfaceCookie(w, id, r)
		}

		sf := s.surface(id)
		ctx := identity.ContextWithSurface(r.Context(), id)
		ctx = context.WithValue(ctx, ContextKeySurface, sf)
		next(w, r.WithContext(ctx))
	}
}

func surfaceFromRequest(r *http.Request) *surface {
	sf, _ := r.Context().Value(ContextKeySurface).(*surface)
	return sf
}

// RequireAuthenticated rejects requests from surfaces with nobody signed in
// or whose session has run out.
func (s *Server) RequireAuthenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sf := surfaceFromRequest(r)
		if sf == nil || !sf.identity.Authenticated() {
			writeError(w, http.StatusUnauthorized, errors.ErrNotAuthenticated)
			return
		}
		if !sf.manager.IsSessionValid() {
			writeError(w, http.StatusUnauthorized, errors.ErrSessionExpired)
			return
		}
		next(w, r)
	}
}

// RequireSensitiveAuth rejects requests whose last sign-in is older than the
// sensitive action window. The client is expected to re-authenticate.
func (s *Server) RequireSensitiveAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sf := surfaceFromRequest(r)
		if sf == nil || !sf.manager.CanPerformSensitiveAction() {
			writeError(w, http.StatusForbidden, errors.ErrReauthRequired)
			return
		}
		next(w, r)
	}
}
