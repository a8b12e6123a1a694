// Package oidclogin signs users in through a hosted OpenID Connect identity
// provider using the authorization code flow with PKCE.
package oidclogin

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/identity"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/identity/authflowrepo"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/clock"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/errors"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const DefaultStateTTL = 10 * time.Minute

type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	StateTTL     time.Duration
}

// Provider drives the redirect to the identity provider and completes the
// login on callback.
type Provider struct {
	oauth    oauth2.Config
	verifier *oidc.IDTokenVerifier
	states   authflowrepo.Repo
	ttl      time.Duration
	clock    clock.Clock
	log      zerolog.Logger
}

var _ identity.Provider = (*Provider)(nil)

type Option func(*Provider)

func WithClock(c clock.Clock) Option {
	return func(p *Provider) {
		p.clock = c
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Provider) {
		p.log = l
	}
}

// New discovers the issuer's endpoints and keys.
func New(ctx context.Context, cfg Config, states authflowrepo.Repo, opts ...Option) (*Provider, error) {
	discovered, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, errors.Wrapf(err, "discovering OIDC issuer %s", cfg.Issuer)
	}
	verifier := discovered.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return NewWithEndpoints(cfg, verifier, discovered.Endpoint(), states, opts...), nil
}

// NewWithEndpoints skips discovery.
func NewWithEndpoints(cfg Config, verifier *oidc.IDTokenVerifier, endpoint oauth2.Endpoint, states authflowrepo.Repo, opts ...Option) *Provider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "email"}
	}
	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}

	p := &Provider{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		verifier: verifier,
		states:   states,
		ttl:      ttl,
		clock:    clock.Real{},
		log:      log.Logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With().Str("component", "oidclogin").Logger()
	return p
}

func (p *Provider) Method() identity.Method {
	return identity.MethodOIDC
}

// Login returns the identity provider URL to redirect to. ctx must carry the
// surface the login is for; identifier, if set, is passed as login_hint.
func (p *Provider) Login(ctx context.Context, identifier string) (identity.Outcome, error) {
	surfaceID, ok := identity.SurfaceFromContext(ctx)
	if !ok {
		return identity.Outcome{}, errors.Wrapf(errors.ErrInvalidState, "login has no surface")
	}

	state, err := randomString()
	if err != nil {
		return identity.Outcome{}, err
	}
	nonce, err := randomString()
	if err != nil {
		return identity.Outcome{}, err
	}
	verifier := oauth2.GenerateVerifier()

	if err := p.states.Upsert(state, &authflowrepo.AuthFlowState{
		SurfaceID:    surfaceID,
		CodeVerifier: verifier,
		Nonce:        nonce,
		LoginHint:    identifier,
		CreatedAt:    p.clock.Now(),
	}); err != nil {
		return identity.Outcome{}, err
	}

	authOpts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier), oidc.Nonce(nonce)}
	if identifier != "" {
		authOpts = append(authOpts, oauth2.SetAuthURLParam("login_hint", identifier))
	}
	return identity.Outcome{
		Status:      identity.StatusPending,
		RedirectURL: p.oauth.AuthCodeURL(state, authOpts...),
	}, nil
}

// Complete exchanges the callback code and verifies the ID token. The state
// must have been issued to the same surface and is consumed either way.
func (p *Provider) Complete(ctx context.Context, state, code string) (identity.Principal, error) {
	flow, err := p.states.Take(state)
	if err != nil {
		return identity.Principal{}, err
	}

	if surfaceID, _ := identity.SurfaceFromContext(ctx); surfaceID != flow.SurfaceID {
		return identity.Principal{}, errors.Wrapf(errors.ErrInvalidState, "state issued to another surface")
	}
	now := p.clock.Now()
	if !now.Before(flow.CreatedAt.Add(p.ttl)) {
		return identity.Principal{}, errors.Wrapf(errors.ErrInvalidState, "state expired")
	}

	token, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(flow.CodeVerifier))
	if err != nil {
		return identity.Principal{}, errors.Wrapf(errors.ErrInvalidSignature, "code exchange: %v", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return identity.Principal{}, errors.Wrapf(errors.ErrInvalidSignature, "token response has no id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return identity.Principal{}, errors.Wrapf(errors.ErrInvalidSignature, "id token: %v", err)
	}
	if idToken.Nonce != flow.Nonce {
		return identity.Principal{}, errors.Wrapf(errors.ErrInvalidSignature, "id token nonce mismatch")
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return identity.Principal{}, errors.Wrapf(errors.ErrInvalidSignature, "id token claims: %v", err)
	}

	principal := identity.Principal{
		Subject:         idToken.Subject,
		Method:          identity.MethodOIDC,
		AuthenticatedAt: now,
	}
	if claims.EmailVerified {
		principal.Email = claims.Email
	}
	p.log.Info().Str("subject", principal.Subject).Msg("oidc login completed")
	return principal, nil
}

// PruneStates drops flows that were never completed.
func (p *Provider) PruneStates() int {
	return p.states.PruneBefore(p.clock.Now().Add(-p.ttl))
}

func randomString() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrapf(errors.ErrEntropyUnavailable, "%v", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
