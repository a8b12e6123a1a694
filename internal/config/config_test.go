package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/config"
	"github.com/stretchr/testify/require"
)

var knownEnvVars = []string{
	"PORT", "APP_NAME", "ENV", "BASE_URL", "LOG_LEVEL",
	"SESSION_TIMEOUT", "SENSITIVE_ACTION_TIMEOUT", "SESSION_WARNING_TIME", "SESSION_MONITOR_INTERVAL",
	"TRUSTED_ORIGINS", "HSTS_MAX_AGE",
	"SESSION_SECRET", "EMAIL_LINK_TTL", "WALLET_DOMAIN", "WALLET_CHALLENGE_TTL",
	"OIDC_ISSUER", "OIDC_CLIENT_ID", "OIDC_CLIENT_SECRET", "OIDC_SCOPES",
}

// clearEnv blanks every variable Load reads; GetEnv treats empty as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range knownEnvVars {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.GetPort())
	require.True(t, cfg.IsDev())
	require.Equal(t, 30*time.Minute, cfg.GetSessionTimeout())
	require.Equal(t, 5*time.Minute, cfg.GetSensitiveActionTimeout())
	require.Equal(t, 2*time.Minute, cfg.GetWarningTime())
	require.Equal(t, 10*time.Second, cfg.GetMonitorInterval())
	require.Equal(t, 2*365*24*time.Hour, cfg.GetHSTSMaxAge())
	require.Empty(t, cfg.GetTrustedOrigins())

	require.True(t, cfg.IsEphemeralSecret())
	require.Len(t, cfg.GetEmailLinkKey(), 32)
	require.Equal(t, "localhost:8080", cfg.GetWalletDomain())
	require.False(t, cfg.GetOIDC().Enabled())
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
port: "9090"
env: PROD
base_url: https://shop.example/
session:
  timeout: 45m
  warning_time: 3m
security:
  trusted_origins:
    - https://api.shop.example
identity:
  session_secret: 0123456789abcdef0123456789abcdef
  oidc:
    issuer: https://idp.example
    client_id: storefront
`)
	t.Setenv("SESSION_TIMEOUT", "60000")
	t.Setenv("SENSITIVE_ACTION_TIMEOUT", "15000")
	t.Setenv("SESSION_WARNING_TIME", "5s")
	t.Setenv("TRUSTED_ORIGINS", "https://a.example/, ,https://b.example")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.GetPort())
	require.False(t, cfg.IsDev())
	require.Equal(t, "https://shop.example", cfg.GetBaseURL())
	require.Equal(t, time.Minute, cfg.GetSessionTimeout())
	require.Equal(t, 15*time.Second, cfg.GetSensitiveActionTimeout())
	require.Equal(t, 5*time.Second, cfg.GetWarningTime())
	require.Equal(t, []string{"https://a.example/", "https://b.example"}, cfg.GetTrustedOrigins())
	require.False(t, cfg.IsEphemeralSecret())
	require.Equal(t, "shop.example", cfg.GetWalletDomain())
	require.True(t, cfg.GetOIDC().Enabled())
	require.Equal(t, "storefront", cfg.GetOIDC().ClientID)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	clearEnv(t)
	_, err := config.Load(writeFile(t, "session:\n  timout: 5m\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "timout")
}

func TestLoad_AggregatesErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "PROD")
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("SESSION_TIMEOUT", "bogus")
	t.Setenv("SESSION_WARNING_TIME", "1h")
	t.Setenv("TRUSTED_ORIGINS", "ftp://files.example,https://a.example/path")

	_, err := config.Load("")
	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	require.ElementsMatch(t, []string{
		"SESSION_TIMEOUT",
		"log_level",
		"session.warning_time",
		"security.trusted_origins[0]",
		"security.trusted_origins[1]",
		"identity.session_secret",
	}, verr.Fields())
	require.True(t, strings.HasPrefix(err.Error(), "invalid configuration (6 problems):"))
}

func TestLoad_OIDCNeedsClientID(t *testing.T) {
	clearEnv(t)
	t.Setenv("OIDC_ISSUER", "https://idp.example")

	_, err := config.Load("")
	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []string{"identity.oidc.client_id"}, verr.Fields())
}

func TestLoad_DerivedKeys(t *testing.T) {
	clearEnv(t)
	secret := strings.Repeat("s", 32)
	t.Setenv("SESSION_SECRET", secret)

	a, err := config.Load("")
	require.NoError(t, err)
	b, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, a.GetEmailLinkKey(), b.GetEmailLinkKey())
	require.NotEqual(t, []byte(secret), a.GetEmailLinkKey())

	t.Setenv("SESSION_SECRET", strings.Repeat("t", 32))
	c, err := config.Load("")
	require.NoError(t, err)
	require.NotEqual(t, a.GetEmailLinkKey(), c.GetEmailLinkKey())

	t.Setenv("SESSION_SECRET", "too-short")
	_, err = config.Load("")
	require.ErrorContains(t, err, "identity.session_secret")
}
