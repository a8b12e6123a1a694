package server

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/errors"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 16 << 10

// errorResponse is the body of every failed API call.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorCodes maps the sentinels a client can act on to stable codes.
var errorCodes = []struct {
	err  error
	code string
}{
	{errors.ErrEntropyUnavailable, "entropy_unavailable"},
	{errors.ErrSessionExpired, "session_expired"},
	{errors.ErrReauthRequired, "reauth_required"},
	{errors.ErrNotAuthenticated, "not_authenticated"},
	{errors.ErrInvalidIdentifier, "invalid_identifier"},
	{errors.ErrInvalidLink, "invalid_link"},
	{errors.ErrLinkAlreadyUsed, "link_already_used"},
	{errors.ErrInvalidAddress, "invalid_address"},
	{errors.ErrChallengeNotFound, "challenge_not_found"},
	{errors.ErrChallengeExpired, "challenge_expired"},
	{errors.ErrInvalidSignature, "invalid_signature"},
	{errors.ErrInvalidState, "invalid_state"},
	{errors.ErrProviderDisabled, "provider_disabled"},
	{errors.ErrNotFound, "not_found"},
}

// classify returns the public code and message for err. Anything unknown is
// reported as an internal error without detail.
func classify(err error) (string, string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code, e.err.Error()
		}
	}
	return "internal_error", errors.ErrInternal.Error()
}

// statusFor picks the HTTP status for an identity or session error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrInvalidIdentifier), errors.Is(err, errors.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotAuthenticated),
		errors.Is(err, errors.ErrSessionExpired),
		errors.Is(err, errors.ErrInvalidLink),
		errors.Is(err, errors.ErrLinkAlreadyUsed),
		errors.Is(err, errors.ErrChallengeNotFound),
		errors.Is(err, errors.ErrChallengeExpired),
		errors.Is(err, errors.ErrInvalidSignature),
		errors.Is(err, errors.ErrInvalidState):
		return http.StatusUnauthorized
	case errors.Is(err, errors.ErrReauthRequired):
		return http.StatusForbidden
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrProviderDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	code, message := classify(err)
	if status >= http.StatusInternalServerError {
		log.Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeFailure reports err with the status its kind implies.
func writeFailure(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

// decodeJSON reads a bounded JSON body into dst. It writes the error
// response itself and reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		writeJSON(w, http.StatusUnsupportedMediaType, errorResponse{
			Error:   "unsupported_media_type",
			Message: "expected application/json",
		})
		return false
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid_request",
			Message: "malformed JSON body",
		})
		return false
	}
	return true
}
