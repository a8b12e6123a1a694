package server

import (
	"net/http"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/identity"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/errors"
	"github.com/rs/zerolog/log"
)

type emailStartRequest struct {
	Email string `json:"email"`
}

// EmailStartHandler mails a sign-in link.
func (s *Server) EmailStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req emailStartRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		outcome, err := s.emailLink.Login(r.Context(), req.Email)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, outcome)
	}
}

// EmailVerifyHandler redeems a sign-in link and sends the browser back to
// the storefront.
func (s *Server) EmailVerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := s.emailLink.Verify(r.Context(), r.URL.Query().Get("token"))
		if err != nil {
			code, _ := classify(err)
			log.Debug().Err(err).Msg("login link rejected")
			pageRedirect(w, r, code)
			return
		}
		s.signIn(surfaceFromRequest(r), principal)
		pageRedirect(w, r, "")
	}
}

type walletChallengeRequest struct {
	Address string `json:"address"`
}

// WalletChallengeHandler returns the message the wallet must sign.
func (s *Server) WalletChallengeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.wallet == nil {
			writeFailure(w, errors.ErrProviderDisabled)
			return
		}
		var req walletChallengeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		outcome, err := s.wallet.Login(r.Context(), req.Address)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	}
}

type walletVerifyRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

// WalletVerifyHandler checks the signed challenge and signs the surface in.
func (s *Server) WalletVerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.wallet == nil {
			writeFailure(w, errors.ErrProviderDisabled)
			return
		}
		var req walletVerifyRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		principal, err := s.wallet.Verify(r.Context(), req.Address, req.Signature)
		if err != nil {
			writeFailure(w, err)
			return
		}
		s.signIn(surfaceFromRequest(r), principal)
		writeJSON(w, http.StatusOK, identity.Outcome{Status: identity.StatusAuthenticated, Principal: &principal})
	}
}

// OIDCLoginHandler redirects to the identity provider.
func (s *Server) OIDCLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.oidc == nil {
			writeFailure(w, errors.ErrProviderDisabled)
			return
		}
		outcome, err := s.oidc.Login(r.Context(), r.URL.Query().Get("login_hint"))
		if err != nil {
			writeFailure(w, err)
			return
		}
		http.Redirect(w, r, outcome.RedirectURL, http.StatusFound)
	}
}

// OIDCCallbackHandler completes the code flow started by OIDCLoginHandler.
func (s *Server) OIDCCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.oidc == nil {
			writeFailure(w, errors.ErrProviderDisabled)
			return
		}
		query := r.URL.Query()
		if idpErr := query.Get("error"); idpErr != "" {
			log.Info().Str("error", idpErr).Str("description", query.Get("error_description")).Msg("identity provider refused login")
			pageRedirect(w, r, "login_refused")
			return
		}

		principal, err := s.oidc.Complete(r.Context(), query.Get("state"), query.Get("code"))
		if err != nil {
			code, _ := classify(err)
			log.Info().Err(err).Msg("oidc callback rejected")
			pageRedirect(w, r, code)
			return
		}
		s.signIn(surfaceFromRequest(r), principal)
		pageRedirect(w, r, "")
	}
}
