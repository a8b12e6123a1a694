package server

import (
	"net/http"
	"path"

	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex+"{$}", ChainMiddleware(s.IndexHandler(), s.PageMiddleware()...))

	// SESSION
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionStatusHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPISessionActivity, ChainMiddleware(s.ActivityHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// SIGN-IN
	s.RegisterRouteHandler("POST "+RouteEmailStart, ChainMiddleware(s.EmailStartHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteEmailVerify, ChainMiddleware(s.EmailVerifyHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteWalletChallenge, ChainMiddleware(s.WalletChallengeHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteWalletVerify, ChainMiddleware(s.WalletVerifyHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteOIDCLogin, ChainMiddleware(s.OIDCLoginHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteOIDCCallback, ChainMiddleware(s.OIDCCallbackHandler(), s.PageMiddleware()...))

	// Sensitive actions
	s.RegisterRouteHandler("POST "+RouteAPICheckoutIntent, ChainMiddleware(s.CheckoutIntentHandler(),
		s.APIMiddleware(s.RequireAuthenticated, s.RequireSensitiveAuth)...))

	s.RegisterRouteHandler("GET "+RouteStaticJS, ChainMiddleware(s.serveFileHandler(), s.StaticMiddleware()...))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := path.Join("js", r.PathValue("file"))
		if err := StreamFile(w, r, filePath); err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("static file not found")
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}
