package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// TokenConfig is a bearer token bound to a role.
type TokenConfig struct {
	Token string
	Role  string
	Name  string
}

// Principal is an authenticated caller. The zero value is anonymous.
type Principal struct {
	Name string
	Role Role
}

// Anonymous returns an unauthenticated principal holding role.
func Anonymous(role Role) Principal {
	return Principal{Name: "anonymous", Role: role}
}

func (p Principal) IsAnonymous() bool { return p.Name == "" || p.Name == "anonymous" }

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal attached by the auth
// middleware. Missing principals are anonymous without permissions.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok {
		return Anonymous(RoleNone), false
	}
	return p, true
}

// ErrNoCredentials is returned when a request carries no Authorization header.
var ErrNoCredentials = errors.New("missing Authorization header")

func ExtractBearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", ErrNoCredentials
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", errors.New("invalid Authorization header format")
	}

	token := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func constantTimeEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Authenticate matches a presented bearer token against configured tokens.
func Authenticate(presented string, tokens []TokenConfig) (Principal, bool) {
	for _, t := range tokens {
		if constantTimeEqual(presented, t.Token) {
			name := t.Name
			if name == "" {
				name = "token:" + strings.ToLower(RoleFromString(t.Role).Name())
			}
			return Principal{
				Name: name,
				Role: RoleFromString(t.Role),
			}, true
		}
	}
	return Principal{}, false
}
