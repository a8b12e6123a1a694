// Package emaillink signs users in with a short-lived, single-use link sent
// to their email address.
package emaillink

import (
	"context"
	"net/mail"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/identity"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/clock"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// Audience scopes link tokens so no other token signed with the same
	// key is accepted here.
	Audience   = "email-link"
	DefaultTTL = 15 * time.Minute
	VerifyPath = "/auth/email/verify"
)

// Mailer delivers a sign-in link.
type Mailer interface {
	SendLoginLink(ctx context.Context, to, link string) error
}

// LogMailer writes links to the log instead of sending them. Development only.
type LogMailer struct {
	Logger zerolog.Logger
}

func (m LogMailer) SendLoginLink(_ context.Context, to, link string) error {
	m.Logger.Info().Str("to", to).Str("link", link).Msg("login link (not sent, development mailer)")
	return nil
}

type Config struct {
	Key     []byte
	TTL     time.Duration
	BaseURL string
	Issuer  string
}

// Provider issues and redeems email sign-in links. Each link is a signed JWT
// whose ID may be redeemed once.
type Provider struct {
	cfg    Config
	mailer Mailer
	clock  clock.Clock
	log    zerolog.Logger

	mu   sync.Mutex
	used map[string]time.Time // jti -> token expiry
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

func New(cfg Config, mailer Mailer, opts ...Option) (*Provider, error) {
	if len(cfg.Key) < 32 {
		return nil, errors.Wrapf(errors.ErrProviderDisabled, "email link signing key must be at least 32 bytes")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	p := &Provider{
		cfg:    cfg,
		mailer: mailer,
		clock:  clock.Real{},
		log:    log.Logger,
		used:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With().Str("component", "emaillink").Logger()
	return p, nil
}

func (p *Provider) Method() identity.Method {
	return identity.MethodEmailLink
}

// Login mails a sign-in link to identifier. The outcome stays pending until
// the link is redeemed through Verify.
func (p *Provider) Login(ctx context.Context, identifier string) (identity.Outcome, error) {
	email, err := NormalizeEmail(identifier)
	if err != nil {
		return identity.Outcome{}, err
	}

	token, err := p.issue(email)
	if err != nil {
		return identity.Outcome{}, err
	}

	link := p.cfg.BaseURL + VerifyPath + "?" + url.Values{"token": {token}}.Encode()
	if err := p.mailer.SendLoginLink(ctx, email, link); err != nil {
		return identity.Outcome{}, errors.Wrapf(err, "sending login link")
	}

	p.log.Info().Str("email", email).Msg("login link issued")
	return identity.Outcome{Status: identity.StatusPending}, nil
}

func (p *Provider) issue(email string) (string, error) {
	now := p.clock.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    p.cfg.Issuer,
		Subject:   email,
		Audience:  jwt.ClaimStrings{Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.cfg.TTL)),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.cfg.Key)
	if err != nil {
		return "", errors.Wrapf(errors.ErrInternal, "signing login link: %v", err)
	}
	return signed, nil
}

// Verify redeems a link token and returns the principal it proves.
func (p *Provider) Verify(_ context.Context, token string) (identity.Principal, error) {
	var claims jwt.RegisteredClaims
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.clock.Now),
	}
	if p.cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(p.cfg.Issuer))
	}

	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return p.cfg.Key, nil
	}, parserOpts...)
	if err != nil {
		p.log.Debug().Err(err).Msg("rejected login link")
		return identity.Principal{}, errors.Wrapf(errors.ErrInvalidLink, "%v", err)
	}
	if claims.ID == "" || claims.Subject == "" {
		return identity.Principal{}, errors.Wrapf(errors.ErrInvalidLink, "missing claims")
	}

	if err := p.redeem(claims.ID, claims.ExpiresAt.Time); err != nil {
		return identity.Principal{}, err
	}

	return identity.Principal{
		Subject:         claims.Subject,
		Method:          identity.MethodEmailLink,
		Email:           claims.Subject,
		AuthenticatedAt: p.clock.Now(),
	}, nil
}

func (p *Provider) redeem(jti string, expires time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	for id, exp := range p.used {
		if !now.Before(exp) {
			delete(p.used, id)
		}
	}

	if _, seen := p.used[jti]; seen {
		p.log.Warn().Str("jti", jti).Msg("login link replayed")
		return errors.ErrLinkAlreadyUsed
	}
	p.used[jti] = expires
	return nil
}

// NormalizeEmail accepts a bare address and lower-cases it.
func NormalizeEmail(s string) (string, error) {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return "", errors.Wrapf(errors.ErrInvalidIdentifier, "invalid email address %q", s)
	}
	return strings.ToLower(addr.Address), nil
}
