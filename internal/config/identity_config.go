package config

import (
	"crypto/rand"
	"crypto/sha256"
	"io"
	"net/url"
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/errors"
	"golang.org/x/crypto/hkdf"
)

const (
	minSecretLength = 32
	emailLinkInfo   = "dead-horse/email-link/v1"
)

type IdentityConfig interface {
	GetEmailLinkKey() []byte
	GetEmailLinkTTL() time.Duration
	GetWalletDomain() string
	GetWalletChallengeTTL() time.Duration
	GetOIDC() OIDC
	IsEphemeralSecret() bool
}

// OIDC configures the optional hosted identity provider. It is disabled
// unless Issuer is set.
type OIDC struct {
	Issuer       string   `yaml:"issuer"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}

func (o OIDC) Enabled() bool {
	return o.Issuer != ""
}

type Identity struct {
	// SessionSecret is the master secret every signing key is derived from.
	SessionSecret      string        `yaml:"session_secret"`
	EmailLinkTTL       time.Duration `yaml:"email_link_ttl"`
	WalletDomain       string        `yaml:"wallet_domain"`
	WalletChallengeTTL time.Duration `yaml:"wallet_challenge_ttl"`
	OIDC               OIDC          `yaml:"oidc"`

	emailLinkKey []byte
	ephemeral    bool
}

var _ IdentityConfig = Identity{}

func defaultIdentity() Identity {
	return Identity{
		EmailLinkTTL:       15 * time.Minute,
		WalletChallengeTTL: 5 * time.Minute,
	}
}

func (i *Identity) overlay(v *ValidationError) {
	overlayString("SESSION_SECRET", &i.SessionSecret)
	v.overlayDuration("EMAIL_LINK_TTL", &i.EmailLinkTTL)
	overlayString("WALLET_DOMAIN", &i.WalletDomain)
	v.overlayDuration("WALLET_CHALLENGE_TTL", &i.WalletChallengeTTL)
	overlayString("OIDC_ISSUER", &i.OIDC.Issuer)
	overlayString("OIDC_CLIENT_ID", &i.OIDC.ClientID)
	overlayString("OIDC_CLIENT_SECRET", &i.OIDC.ClientSecret)
	if raw := GetEnv("OIDC_SCOPES", ""); raw != "" {
		i.OIDC.Scopes = splitList(raw)
	}
}

func (i Identity) validate(v *ValidationError, env EnvVars) {
	switch {
	case i.SessionSecret == "" && !env.IsDev():
		v.add("identity.session_secret", "is required outside DEV")
	case i.SessionSecret != "" && len(i.SessionSecret) < minSecretLength:
		v.add("identity.session_secret", "must be at least %d bytes", minSecretLength)
	}
	v.positive("identity.email_link_ttl", i.EmailLinkTTL)
	v.positive("identity.wallet_challenge_ttl", i.WalletChallengeTTL)

	if i.OIDC.Issuer != "" || i.OIDC.ClientID != "" {
		if msg := checkHTTPURL(i.OIDC.Issuer); msg != "" {
			v.add("identity.oidc.issuer", "%s", msg)
		}
		if i.OIDC.ClientID == "" {
			v.add("identity.oidc.client_id", "is required when identity.oidc.issuer is set")
		}
	}
}

// deriveKeys expands the master secret into per-purpose keys. In DEV an
// empty secret is replaced by a random one that lasts for the process.
func (i *Identity) deriveKeys(env EnvVars) error {
	secret := []byte(i.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, minSecretLength)
		if _, err := rand.Read(secret); err != nil {
			return errors.Wrapf(errors.ErrEntropyUnavailable, "generating development secret: %v", err)
		}
		i.ephemeral = true
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(emailLinkInfo)), key); err != nil {
		return errors.Wrapf(errors.ErrInternal, "deriving email link key: %v", err)
	}
	i.emailLinkKey = key

	if i.WalletDomain == "" {
		if u, err := url.Parse(env.BaseURL); err == nil {
			i.WalletDomain = u.Host
		}
	}
	return nil
}

func (i Identity) GetEmailLinkKey() []byte {
	return append([]byte(nil), i.emailLinkKey...)
}

func (i Identity) GetEmailLinkTTL() time.Duration {
	return i.EmailLinkTTL
}

func (i Identity) GetWalletDomain() string {
	return i.WalletDomain
}

func (i Identity) GetWalletChallengeTTL() time.Duration {
	return i.WalletChallengeTTL
}

func (i Identity) GetOIDC() OIDC {
	o := i.OIDC
	o.Scopes = append([]string(nil), o.Scopes...)
	return o
}

// IsEphemeralSecret reports whether keys come from a random development
// secret, so links stop working on restart.
func (i Identity) IsEphemeralSecret() bool {
	return i.ephemeral
}
