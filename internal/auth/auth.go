// Package auth issues and verifies bearer tokens and checks demo account
// passwords.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/epicvibe/platform/internal/epicvibe"
)

var (
	ErrTokenExpired = fmt.Errorf("token expired: %w", epicvibe.ErrUnauthorized)
	ErrTokenInvalid = fmt.Errorf("token invalid: %w", epicvibe.ErrUnauthorized)
	ErrBadLogin     = fmt.Errorf("invalid username or password: %w", epicvibe.ErrUnauthorized)
)

// DemoUser is the identity substituted for unauthenticated callers in demo
// mode.
var DemoUser = epicvibe.User{
	ID:            "user_1",
	Username:      "demouser",
	WalletAddress: "WALLET1XXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX",
	Role:          "user",
}

type Claims struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	WalletAddress string `json:"walletAddress"`
	Role          string `json:"role"`
	jwt.RegisteredClaims
}

type account struct {
	user epicvibe.User
	hash []byte
}

type Authenticator struct {
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time

	mu       sync.RWMutex
	accounts map[string]account
}

func New(secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{
		secret:   []byte(secret),
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		accounts: make(map[string]account),
	}
}

// WithCost sets the bcrypt cost used by Register.
func (a *Authenticator) WithCost(cost int) *Authenticator {
	a.cost = cost
	return a
}

func (a *Authenticator) Register(u epicvibe.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return fmt.Errorf("hashing password for %s: %w", u.Username, err)
	}
	if u.Role == "" {
		u.Role = "user"
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[strings.ToLower(u.Username)] = account{user: u, hash: hash}
	return nil
}

// Login checks the password and returns a fresh token for the account.
func (a *Authenticator) Login(username, password string) (string, epicvibe.User, error) {
	a.mu.RLock()
	acc, ok := a.accounts[strings.ToLower(strings.TrimSpace(username))]
	a.mu.RUnlock()
	if !ok {
		return "", epicvibe.User{}, ErrBadLogin
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return "", epicvibe.User{}, ErrBadLogin
	}

	token, err := a.Issue(acc.user)
	if err != nil {
		return "", epicvibe.User{}, err
	}
	return token, acc.user, nil
}

func (a *Authenticator) Issue(u epicvibe.User) (string, error) {
	now := a.now()
	claims := Claims{
		ID:            u.ID,
		Username:      u.Username,
		WalletAddress: u.WalletAddress,
		Role:          u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses a token and returns the identity it carries. Expired tokens
// yield ErrTokenExpired, anything else unusable ErrTokenInvalid.
func (a *Authenticator) Verify(token string) (epicvibe.User, error) {
	var claims Claims
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
			return epicvibe.User{}, ErrTokenExpired
		}
		return epicvibe.User{}, ErrTokenInvalid
	}
	if claims.ID == "" {
		return epicvibe.User{}, ErrTokenInvalid
	}

	role := claims.Role
	if role == "" {
		role = "user"
	}
	return epicvibe.User{
		ID:            claims.ID,
		Username:      claims.Username,
		WalletAddress: claims.WalletAddress,
		Role:          role,
	}, nil
}

// BearerToken extracts the token from an Authorization header value. A bare
// token without the scheme is accepted too.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
