package server

import (
	"github.com/epicvibe/platform/internal/epicvibe"
)

// Authenticator checks demo account passwords and bearer tokens.
type Authenticator interface {
	Login(username, password string) (string, epicvibe.User, error)
	Verify(token string) (epicvibe.User, error)
}
