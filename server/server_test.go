package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/clock"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/config"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/security"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/server"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/server/loginsession"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

const walletAddress = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

type captureMailer struct {
	mu   sync.Mutex
	link string
}

func (m *captureMailer) SendLoginLink(_ context.Context, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.link = link
	return nil
}

func (m *captureMailer) lastLink() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.link
}

type stubVerifier struct{}

func (stubVerifier) VerifySignature(_ context.Context, _, message, signature string) error {
	if signature != "signed:"+message {
		return errors.New("signature mismatch")
	}
	return nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

type harness struct {
	t      *testing.T
	srv    *server.Server
	clock  *clock.Fake
	mailer *captureMailer
	logins *loginsession.InMemoryLoginSessionRepo
	cookie *http.Cookie
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("ENV", "DEV")
	t.Setenv("SESSION_TIMEOUT", "60000")
	t.Setenv("SENSITIVE_ACTION_TIMEOUT", "15000")
	t.Setenv("SESSION_WARNING_TIME", "5000")
	t.Setenv("SESSION_MONITOR_INTERVAL", "1000")
	t.Setenv("TRUSTED_ORIGINS", "https://cdn.example.com")
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func newHarness(t *testing.T, opts ...server.Option) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		clock:  clock.NewFake(epoch),
		mailer: &captureMailer{},
		logins: loginsession.NewInMemoryLoginSessionRepo(),
	}
	opts = append([]server.Option{
		server.WithClock(h.clock),
		server.WithMailer(h.mailer),
		server.WithWalletVerifier(stubVerifier{}),
		server.WithLoginSessions(h.logins),
	}, opts...)

	srv, err := server.New(testConfig(t), opts...)
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	h.srv = srv
	return h
}

// do sends a request carrying the harness's surface cookie and remembers
// any cookie the server issues.
func (h *harness) do(method, target string, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}

	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == "dh_surface" {
			h.cookie = c
		}
	}
	return rec
}

func (h *harness) session() map[string]interface{} {
	h.t.Helper()
	rec := h.do(http.MethodGet, "/api/session", nil)
	require.Equal(h.t, http.StatusOK, rec.Code)
	var out map[string]interface{}
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (h *harness) signInByEmail() {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/auth/email/start", map[string]string{"email": "Collector@Example.com"})
	require.Equal(h.t, http.StatusAccepted, rec.Code)

	link, err := url.Parse(h.mailer.lastLink())
	require.NoError(h.t, err)
	rec = h.do(http.MethodGet, link.RequestURI(), nil)
	require.Equal(h.t, http.StatusSeeOther, rec.Code)
	require.Equal(h.t, "/", rec.Header().Get("Location"))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Error
}

var nonceAttr = regexp.MustCompile(`nonce="([^"]+)"`)

func TestServer_IndexCarriesSecurityHeaders(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, name := range []string{
		"Content-Security-Policy",
		"X-Frame-Options",
		"X-Content-Type-Options",
		"Referrer-Policy",
		"Permissions-Policy",
		"Strict-Transport-Security",
	} {
		require.NotEmpty(t, rec.Header().Get(name), name)
	}
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	match := nonceAttr.FindStringSubmatch(rec.Body.String())
	require.Len(t, match, 2)
	csp := rec.Header().Get("Content-Security-Policy")
	require.Contains(t, csp, "'nonce-"+html.UnescapeString(match[1])+"'")
	require.Contains(t, csp, "https://cdn.example.com")

	again := h.do(http.MethodGet, "/", nil)
	second := nonceAttr.FindStringSubmatch(again.Body.String())
	require.Len(t, second, 2)
	require.NotEqual(t, match[1], second[1])
}

func TestServer_IgnoresClientNonceHeader(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(security.NonceHeader, "Zm9yZ2VkZm9yZ2VkZm9yZ2U=")
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	match := nonceAttr.FindStringSubmatch(rec.Body.String())
	require.Len(t, match, 2)
	rendered := html.UnescapeString(match[1])
	require.NotEqual(t, "Zm9yZ2VkZm9yZ2VkZm9yZ2U=", rendered)
	require.Contains(t, rec.Header().Get("Content-Security-Policy"), "'nonce-"+rendered+"'")
}

func TestServer_RefusesWithoutEntropy(t *testing.T) {
	h := newHarness(t, server.WithNonceProvider(
		security.NewNonceProvider(security.WithEntropySource(failingReader{}))))

	rec := h.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Empty(t, rec.Header().Get("Content-Security-Policy"))

	rec = h.do(http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_SurfaceCookie(t *testing.T) {
	h := newHarness(t)

	h.do(http.MethodGet, "/api/session", nil)
	require.NotNil(t, h.cookie)
	first := h.cookie.Value
	require.True(t, h.cookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, h.cookie.SameSite)
	require.Equal(t, "/", h.cookie.Path)

	rec := h.do(http.MethodGet, "/api/session", nil)
	require.Empty(t, rec.Result().Cookies(), "a valid cookie is reused")
	require.Equal(t, first, h.cookie.Value)

	h.cookie = &http.Cookie{Name: "dh_surface", Value: "not-a-uuid"}
	h.do(http.MethodGet, "/api/session", nil)
	require.NotEqual(t, "not-a-uuid", h.cookie.Value)
	require.NotEqual(t, first, h.cookie.Value)
}

func TestServer_Activity(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/session/activity", map[string]string{"signal": "click"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = h.do(http.MethodPost, "/api/session/activity", map[string]string{"signal": "wave"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_identifier", errorCode(t, rec))

	req := httptest.NewRequest(http.MethodPost, "/api/session/activity", strings.NewReader(`{"signal":"click"}`))
	req.Header.Set("Content-Type", "text/plain")
	raw := httptest.NewRecorder()
	h.srv.ServeHTTP(raw, req)
	require.Equal(t, http.StatusUnsupportedMediaType, raw.Code)
}

func TestServer_EmailLinkSignIn(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, false, h.session()["authenticated"])
	h.signInByEmail()

	status := h.session()
	require.Equal(t, true, status["authenticated"])
	principal := status["principal"].(map[string]interface{})
	require.Equal(t, "collector@example.com", principal["email"])
	require.Equal(t, "email_link", principal["method"])
	require.NotNil(t, status["signed_in_at"])
	require.Equal(t, 1, h.logins.Count())

	// The link is single use.
	link, err := url.Parse(h.mailer.lastLink())
	require.NoError(t, err)
	rec := h.do(http.MethodGet, link.RequestURI(), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/?error=link_already_used", rec.Header().Get("Location"))

	rec = h.do(http.MethodPost, "/auth/email/start", map[string]string{"email": "not an email"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_WalletSignIn(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/auth/wallet/challenge", map[string]string{"address": strings.ToLower(walletAddress)})
	require.Equal(t, http.StatusOK, rec.Code)
	var challenge struct {
		Status    string `json:"status"`
		Challenge string `json:"challenge"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &challenge))
	require.Equal(t, "pending", challenge.Status)
	require.Contains(t, challenge.Challenge, walletAddress)

	rec = h.do(http.MethodPost, "/auth/wallet/verify", map[string]string{
		"address":   walletAddress,
		"signature": "signed:" + challenge.Challenge,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, h.session()["authenticated"])

	rec = h.do(http.MethodPost, "/auth/wallet/verify", map[string]string{
		"address":   walletAddress,
		"signature": "signed:" + challenge.Challenge,
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "challenge_not_found", errorCode(t, rec))
}

func TestServer_OIDCDisabled(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/auth/oidc/login", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "provider_disabled", errorCode(t, rec))
}

func TestServer_WalletDisabledWithoutVerifier(t *testing.T) {
	h := newHarness(t, server.WithWalletVerifier(nil))

	rec := h.do(http.MethodPost, "/auth/wallet/challenge", map[string]string{"address": walletAddress})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "provider_disabled", errorCode(t, rec))

	rec = h.do(http.MethodPost, "/auth/wallet/verify", map[string]string{"address": walletAddress, "signature": "x"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_CheckoutNeedsRecentSignIn(t *testing.T) {
	h := newHarness(t)
	order := map[string]string{"artwork_id": "dh-0042"}

	rec := h.do(http.MethodPost, "/api/checkout/intent", order)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "not_authenticated", errorCode(t, rec))

	h.signInByEmail()

	rec = h.do(http.MethodPost, "/api/checkout/intent", order)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var intent server.CheckoutIntent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &intent))
	require.Equal(t, "dh-0042", intent.ArtworkID)
	require.NotEmpty(t, intent.IntentID)
	require.Equal(t, int64(15000), intent.ExpiresInMS)

	rec = h.do(http.MethodPost, "/api/checkout/intent", map[string]string{"artwork_id": " "})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	h.clock.Advance(16 * time.Second)
	rec = h.do(http.MethodPost, "/api/checkout/intent", order)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "reauth_required", errorCode(t, rec))

	// Signing in again reopens the window.
	h.signInByEmail()
	rec = h.do(http.MethodPost, "/api/checkout/intent", order)
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestServer_Logout(t *testing.T) {
	h := newHarness(t)
	h.signInByEmail()
	require.Equal(t, 1, h.logins.Count())

	rec := h.do(http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	status := h.session()
	require.Equal(t, false, status["authenticated"])
	require.Nil(t, status["signed_in_at"])
	require.Equal(t, 0, h.logins.Count())
}

func TestServer_WarningThenExpiry(t *testing.T) {
	h := newHarness(t)
	h.signInByEmail()

	h.clock.Advance(56 * time.Second)
	require.Eventually(t, func() bool {
		return h.session()["warning"] == true
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, false, h.session()["warning"], "reading the warning clears it")

	h.clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool {
		return h.session()["authenticated"] == false
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return h.logins.Count() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestServer_PruneSurfaces(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/api/session", nil)

	require.Equal(t, 0, h.srv.PruneSurfaces(), "fresh surfaces are kept")

	h.clock.Advance(61 * time.Second)
	require.Equal(t, 1, h.srv.PruneSurfaces())
	require.Equal(t, 0, h.srv.PruneSurfaces())
}

func TestServer_StaticAsset(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/js/activity.js", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "javascript")
	require.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	rec = h.do(http.MethodGet, "/js/missing.js", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
