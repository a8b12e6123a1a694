package server

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/identity"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/server/loginsession"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// surfaceCookieName identifies the browser surface a request belongs to
	surfaceCookieName = "dh_surface"
	// surfaceCookieMaxAge is one year; the surface outlives any session on it
	surfaceCookieMaxAge = 365 * 24 * 60 * 60
)

func newSurfaceID() string {
	return uuid.NewString()
}

func surfaceIDFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(surfaceCookieName)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func (s *Server) SetSurfaceCookie(w http.ResponseWriter, surfaceID string, r *http.Request) {
	isSecure := getScheme(r) == "https" || s.env != "DEV"

	http.SetCookie(w, &http.Cookie{
		Name:     surfaceCookieName,
		Value:    surfaceID,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   surfaceCookieMaxAge,
	})
}

// signIn records principal on the surface. The sensitive window opens before
// the identity flips so the activity binding starts from a fresh session.
func (s *Server) signIn(sf *surface, principal identity.Principal) {
	sf.orch.Transition(func() {
		sf.manager.MarkSensitiveAuth()
		sf.identity.SignIn(principal)

		err := s.loginSessions.Upsert(sf.id, loginsession.Session{
			Subject:    principal.Subject,
			Method:     string(principal.Method),
			Email:      principal.Email,
			Address:    principal.Address,
			SignedInAt: principal.AuthenticatedAt,
		})
		if err != nil {
			log.Err(err).Str("surface", sf.id).Msg("failed to record login session")
		}
	})
}

// signOut ends the surface's login and starts a fresh session clock.
func (s *Server) signOut(ctx context.Context, sf *surface) (err error) {
	sf.orch.Transition(func() {
		if _, err = sf.identity.Logout(ctx); err != nil {
			return
		}
		sf.manager.ResetSession()
		err = s.loginSessions.Delete(sf.id)
	})
	return err
}

// pageRedirect sends the browser back to the storefront, optionally with an
// error code for the page to show.
func pageRedirect(w http.ResponseWriter, r *http.Request, errorCode string) {
	target := RouteIndex
	if errorCode != "" {
		target += "?" + url.Values{"error": {errorCode}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
