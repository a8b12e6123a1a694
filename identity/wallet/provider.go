// Package wallet signs users in by having their wallet sign a one-time
// challenge. Checking the signature itself is left to a Verifier backed by
// a chain SDK.
package wallet

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/identity"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/clock"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultChallengeTTL = 5 * time.Minute

// Verifier checks that signature is address's signature over message.
type Verifier interface {
	VerifySignature(ctx context.Context, address, message, signature string) error
}

type challenge struct {
	message string
	expires time.Time
}

// Provider issues sign-in challenges and checks the signed responses.
type Provider struct {
	domain   string
	ttl      time.Duration
	verifier Verifier
	clock    clock.Clock
	log      zerolog.Logger

	mu      sync.Mutex
	pending map[string]challenge // checksummed address -> challenge
}

var _ identity.Provider = (*Provider)(nil)

type Option func(*Provider)

func WithChallengeTTL(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.ttl = d
		}
	}
}

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

// New returns a provider whose challenges name domain.
func New(domain string, verifier Verifier, opts ...Option) *Provider {
	p := &Provider{
		domain:   domain,
		ttl:      DefaultChallengeTTL,
		verifier: verifier,
		clock:    clock.Real{},
		log:      log.Logger,
		pending:  make(map[string]challenge),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With().Str("component", "wallet").Logger()
	return p
}

func (p *Provider) Method() identity.Method {
	return identity.MethodWallet
}

// Login issues a challenge for the address in identifier. A new challenge
// replaces any pending one for the same address.
func (p *Provider) Login(_ context.Context, identifier string) (identity.Outcome, error) {
	address, err := NormalizeAddress(identifier)
	if err != nil {
		return identity.Outcome{}, err
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return identity.Outcome{}, errors.Wrapf(errors.ErrEntropyUnavailable, "challenge nonce: %v", err)
	}

	now := p.clock.Now()
	message := fmt.Sprintf("%s wants you to sign in with your wallet:\n%s\n\nNonce: %s\nIssued At: %s",
		p.domain, address, hex.EncodeToString(nonce), now.UTC().Format(time.RFC3339))

	p.mu.Lock()
	p.pruneLocked(now)
	p.pending[address] = challenge{message: message, expires: now.Add(p.ttl)}
	p.mu.Unlock()

	p.log.Debug().Str("address", address).Msg("wallet challenge issued")
	return identity.Outcome{Status: identity.StatusPending, Challenge: message}, nil
}

// Verify consumes the pending challenge for address and checks signature
// against it. A challenge can be answered once, right or wrong.
func (p *Provider) Verify(ctx context.Context, address, signature string) (identity.Principal, error) {
	address, err := NormalizeAddress(address)
	if err != nil {
		return identity.Principal{}, err
	}

	p.mu.Lock()
	ch, ok := p.pending[address]
	delete(p.pending, address)
	p.mu.Unlock()

	if !ok {
		return identity.Principal{}, errors.ErrChallengeNotFound
	}
	now := p.clock.Now()
	if !now.Before(ch.expires) {
		return identity.Principal{}, errors.ErrChallengeExpired
	}
	if err := p.verifier.VerifySignature(ctx, address, ch.message, signature); err != nil {
		p.log.Warn().Str("address", address).Err(err).Msg("wallet signature rejected")
		return identity.Principal{}, errors.Wrapf(errors.ErrInvalidSignature, "%v", err)
	}

	return identity.Principal{
		Subject:         address,
		Method:          identity.MethodWallet,
		Address:         address,
		AuthenticatedAt: now,
	}, nil
}

func (p *Provider) pruneLocked(now time.Time) {
	for address, ch := range p.pending {
		if !now.Before(ch.expires) {
			delete(p.pending, address)
		}
	}
}
