package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/activity"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/identity"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/errors"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/sessions"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SessionStatus is the body of GET /api/session.
type SessionStatus struct {
	Authenticated bool                `json:"authenticated"`
	Principal     *identity.Principal `json:"principal,omitempty"`
	SignedInAt    *time.Time          `json:"signed_in_at,omitempty"`
	Session       sessions.Info       `json:"session"`
	// Warning is set once per warning; reading it clears it.
	Warning bool `json:"warning"`
}

// SessionStatusHandler reports the surface's session without counting as
// activity.
func (s *Server) SessionStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sf := surfaceFromRequest(r)

		status := SessionStatus{
			Authenticated: sf.identity.Authenticated(),
			Session:       sf.manager.SessionInfo(),
			Warning:       sf.warningPending.Swap(false),
		}
		if p, ok := sf.identity.Principal(); ok {
			status.Principal = &p
		}
		if record, err := s.loginSessions.Get(sf.id); err == nil {
			signedInAt := record.SignedInAt
			status.SignedInAt = &signedInAt
		}
		writeJSON(w, http.StatusOK, status)
	}
}

type activityRequest struct {
	Signal string `json:"signal"`
}

// ActivityHandler feeds a browser interaction into the surface's activity
// bus. Throttling happens downstream, so every valid signal is accepted.
func (s *Server) ActivityHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req activityRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		signal, err := activity.ParseSignal(req.Signal)
		if err != nil {
			writeFailure(w, err)
			return
		}

		surfaceFromRequest(r).bus.Publish(signal)
		w.WriteHeader(http.StatusNoContent)
	}
}

// LogoutHandler signs the surface out and starts a fresh session.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sf := surfaceFromRequest(r)
		if err := s.signOut(r.Context(), sf); err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, identity.Outcome{Status: identity.StatusSignedOut})
	}
}

type checkoutRequest struct {
	ArtworkID string `json:"artwork_id"`
}

// CheckoutIntent acknowledges a purchase the payment form may now complete.
type CheckoutIntent struct {
	IntentID    string `json:"intent_id"`
	ArtworkID   string `json:"artwork_id"`
	ExpiresInMS int64  `json:"expires_in_ms"`
}

// CheckoutIntentHandler opens a checkout. It sits behind the sensitive
// action gate, so the intent is only valid for what is left of that window.
func (s *Server) CheckoutIntentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.ArtworkID = strings.TrimSpace(req.ArtworkID)
		if req.ArtworkID == "" {
			writeFailure(w, errors.Wrapf(errors.ErrInvalidIdentifier, "artwork_id is required"))
			return
		}

		sf := surfaceFromRequest(r)
		intent := CheckoutIntent{
			IntentID:    uuid.NewString(),
			ArtworkID:   req.ArtworkID,
			ExpiresInMS: sf.manager.TimeUntilSensitiveExpiry().Milliseconds(),
		}
		log.Info().Str("surface", sf.id).Str("artwork", intent.ArtworkID).Str("intent", intent.IntentID).Msg("checkout intent created")
		writeJSON(w, http.StatusAccepted, intent)
	}
}
