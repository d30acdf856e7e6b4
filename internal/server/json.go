package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/epicvibe/platform/internal/epicvibe"
)

// envelope wraps every /api response body.
type envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeData(w http.ResponseWriter, status int, data any, msg string) {
	writeJSON(w, status, envelope{Status: "success", Data: data, Message: msg})
}

// writeError writes an error envelope. err is exposed in the error field only
// when the request was marked verbose.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	env := envelope{Status: "error", Message: msg}
	if err != nil && verbose(r) {
		env.Error = err.Error()
	}
	writeJSON(w, status, env)
}

// writeFailure maps a domain error to its status. Client errors carry their
// own message; server and upstream failures use fallback.
func writeFailure(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := statusFor(err)
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized:
		writeError(w, r, status, clientMessage(err), nil)
	default:
		writeError(w, r, status, fallback, err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, epicvibe.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, epicvibe.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, epicvibe.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, epicvibe.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, epicvibe.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// clientMessage turns "game description is required: validation failed" into
// "Game description is required".
func clientMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{epicvibe.ErrValidation, epicvibe.ErrUnauthorized} {
		msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
	}
	r, n := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[n:]
}
