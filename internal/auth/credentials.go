package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/orbo-dev/orbo/internal/session"
)

const bearerPrefix = "Bearer "

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
)

// Credentials are the raw identity claims a request carried. They are not
// validated until a resolver looks at them.
type Credentials struct {
	SessionID   string
	BearerToken string
}

// Empty reports whether the request carried no credentials at all.
func (c Credentials) Empty() bool {
	return c.SessionID == "" && c.BearerToken == ""
}

type credentialsKey struct{}

// WithCredentials attaches request credentials to ctx.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

// CredentialsFrom returns the credentials stored by WithCredentials.
func CredentialsFrom(ctx context.Context) Credentials {
	creds, _ := ctx.Value(credentialsKey{}).(Credentials)
	return creds
}

// ExtractCredentials reads the session cookie and bearer token from r.
// A malformed Authorization header is ignored; the request is then treated as
// carrying no token.
func ExtractCredentials(r *http.Request) Credentials {
	var creds Credentials
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		creds.SessionID = cookie.Value
	}
	if token, err := ExtractBearerToken(r.Header.Get("Authorization")); err == nil {
		creds.BearerToken = token
	}
	return creds
}

// ExtractBearerToken parses an Authorization header value.
func ExtractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}
