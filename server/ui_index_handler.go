package server

import (
	"bytes"
	"net/http"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/security"
	"github.com/rs/zerolog/log"
)

// indexPage is the data for templates/index.html.
type indexPage struct {
	AppName     string
	Nonce       string
	Error       string
	OIDCEnabled bool
	Settings    map[string]int64
}

// IndexHandler renders the storefront shell. Its inline scripts carry the
// request nonce so they run under the Content-Security-Policy.
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("index.html")
	if err != nil {
		panic("Failed to parse index template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		nonce, ok := security.NonceFromRequest(r)
		if !ok {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		data := indexPage{
			AppName:     s.config.GetAppName(),
			Nonce:       nonce.String(),
			Error:       r.URL.Query().Get("error"),
			OIDCEnabled: s.oidc != nil,
			Settings: map[string]int64{
				"throttleMs": s.throttleWindow.Milliseconds(),
				"pollMs":     s.config.GetMonitorInterval().Milliseconds(),
			},
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			log.Err(err).Msg("failed to render index")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = buf.WriteTo(w)
	}
}
