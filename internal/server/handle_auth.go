package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/epicvibe/platform/internal/epicvibe"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token for later requests.
type LoginResponse struct {
	Token string        `json:"token"`
	User  epicvibe.User `json:"user"`
}

type UserResponse struct {
	User epicvibe.User `json:"user"`
}

func handleLogin(authn Authenticator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if strings.TrimSpace(req.Username) == "" || req.Password == "" {
			writeError(w, r, http.StatusBadRequest, "Username and password are required", nil)
			return
		}

		token, u, err := authn.Login(req.Username, req.Password)
		if err != nil {
			logger.Info("login failed", "username", req.Username, "error", err)
			writeFailure(w, r, err, "Login failed")
			return
		}
		writeData(w, http.StatusOK, LoginResponse{Token: token, User: u}, "Login successful")
	}
}

func handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, UserResponse{User: userFrom(r)}, "")
	}
}
