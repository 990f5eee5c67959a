package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/isdelr/notebook-be/internal/common"
	"github.com/rs/zerolog/log"
)

// MaxBodyBytes caps the size of JSON request bodies.
const MaxBodyBytes = 1 << 20

var errBadBody = errors.New("invalid request body")

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &httpError{status: http.StatusBadRequest, msg: "Request body too large"}
	}
	return &httpError{status: http.StatusBadRequest, msg: "Invalid request body", cause: errBadBody}
}

// httpError is a response decided by the handler itself rather than the error taxonomy.
type httpError struct {
	status int
	msg    string
	cause  error
}

func (e *httpError) Error() string { return e.msg }
func (e *httpError) Unwrap() error { return e.cause }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps err onto a status code and a client-safe message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Request failed")

	writeJSON(w, status, map[string]string{"error": msg})
}

func classify(err error) (int, string) {
	var he *httpError
	var upstream *common.UpstreamError
	switch {
	case errors.As(err, &he):
		return he.status, he.msg
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, detail(err, common.ErrValidation, "Invalid request")
	case errors.Is(err, common.ErrUnsupportedLanguage):
		return http.StatusBadRequest, "Unsupported language: " + suffix(err, common.ErrUnsupportedLanguage)
	case errors.Is(err, common.ErrNotAuthenticated):
		return http.StatusUnauthorized, "Not authenticated"
	case errors.Is(err, common.ErrInvalidSession):
		return http.StatusUnauthorized, "Invalid session"
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, detail(err, common.ErrNotFound, "Not found")
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict, detail(err, common.ErrConflict, "Already exists")
	case errors.As(err, &upstream):
		return http.StatusInternalServerError, upstream.Error()
	case errors.Is(err, common.ErrLanguageUnavailable):
		return http.StatusInternalServerError, "Language not available: " + suffix(err, common.ErrLanguageUnavailable)
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// suffix returns the text following "<sentinel>: " in err's message.
func suffix(err, sentinel error) string {
	prefix := sentinel.Error() + ": "
	msg := err.Error()
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return ""
}

// detail is suffix with its first letter capitalized, or fallback when absent.
func detail(err, sentinel error, fallback string) string {
	msg := suffix(err, sentinel)
	if msg == "" {
		return fallback
	}
	r, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[size:]
}
