package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/activity"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/identity/emaillink"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/identity/oidclogin"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/identity/wallet"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/clock"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/config"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/security"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/server/loginsession"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/sessions"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env    string
	mux    *http.ServeMux
	routes []string
	config config.Config
	clock  clock.Clock

	nonces  *security.NonceProvider
	headers *security.HeaderBuilder

	sessions      *sessions.Registry
	surfaces      *surfaceRegistry
	loginSessions loginsession.Repo

	mailer         emaillink.Mailer
	emailLink      *emaillink.Provider
	walletVerifier wallet.Verifier
	wallet         *wallet.Provider
	oidc           *oidclogin.Provider

	throttleWindow time.Duration
}

type Option func(*Server)

// WithClock drives sessions, throttles and providers from c.
func WithClock(c clock.Clock) Option {
	return func(s *Server) {
		s.clock = c
	}
}

// WithMailer replaces the development mailer that only logs links.
func WithMailer(m emaillink.Mailer) Option {
	return func(s *Server) {
		s.mailer = m
	}
}

// WithWalletVerifier enables wallet sign-in.
func WithWalletVerifier(v wallet.Verifier) Option {
	return func(s *Server) {
		s.walletVerifier = v
	}
}

// WithOIDCProvider enables sign-in through a hosted identity provider.
func WithOIDCProvider(p *oidclogin.Provider) Option {
	return func(s *Server) {
		s.oidc = p
	}
}

func WithLoginSessions(repo loginsession.Repo) Option {
	return func(s *Server) {
		s.loginSessions = repo
	}
}

func WithNonceProvider(p *security.NonceProvider) Option {
	return func(s *Server) {
		s.nonces = p
	}
}

func WithThrottleWindow(d time.Duration) Option {
	return func(s *Server) {
		s.throttleWindow = d
	}
}

func New(cfg config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		env:            cfg.GetEnv(),
		mux:            http.NewServeMux(),
		config:         cfg,
		clock:          clock.Real{},
		nonces:         security.NewNonceProvider(),
		loginSessions:  loginsession.NewInMemoryLoginSessionRepo(),
		mailer:         emaillink.LogMailer{Logger: log.Logger},
		throttleWindow: activity.DefaultThrottleWindow,
	}
	for _, opt := range opts {
		opt(s)
	}

	sessionCfg := sessions.Config{
		SessionTimeout:         cfg.GetSessionTimeout(),
		SensitiveActionTimeout: cfg.GetSensitiveActionTimeout(),
		WarningTime:            cfg.GetWarningTime(),
	}
	if err := sessionCfg.Validate(); err != nil {
		return nil, fmt.Errorf("[Server New] invalid session configuration: %w", err)
	}
	s.sessions = sessions.NewRegistry(sessionCfg, sessions.WithClock(s.clock))
	s.surfaces = newSurfaceRegistry()

	s.headers = security.NewHeaderBuilder(
		security.NewOriginList(cfg.GetTrustedOrigins()...),
		security.WithHSTSMaxAge(cfg.GetHSTSMaxAge()),
	)

	emailLink, err := emaillink.New(emaillink.Config{
		Key:     cfg.GetEmailLinkKey(),
		TTL:     cfg.GetEmailLinkTTL(),
		BaseURL: cfg.GetBaseURL(),
		Issuer:  cfg.GetBaseURL(),
	}, s.mailer, emaillink.WithClock(s.clock))
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create email link provider: %w", err)
	}
	s.emailLink = emailLink

	if s.walletVerifier != nil {
		s.wallet = wallet.New(cfg.GetWalletDomain(), s.walletVerifier,
			wallet.WithChallengeTTL(cfg.GetWalletChallengeTTL()),
			wallet.WithClock(s.clock))
	} else {
		log.Info().Msg("wallet sign-in disabled, no signature verifier configured")
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

// RunJanitor evicts idle surfaces and abandoned login flows every interval
// until ctx is done.
func (s *Server) RunJanitor(ctx context.Context, interval time.Duration) error {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			removed := s.PruneSurfaces()
			if s.oidc != nil {
				removed += s.oidc.PruneStates()
			}
			if removed > 0 {
				log.Debug().Int("removed", removed).Int("surfaces", s.surfaces.Len()).Msg("janitor pass")
			}
		}
	}
}

// Close stops every surface's monitoring and activity tracking.
func (s *Server) Close() {
	for _, sf := range s.surfaces.drain() {
		sf.close()
	}
	s.sessions.Close()
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Debug().Msgf("[%-19s] %s", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
