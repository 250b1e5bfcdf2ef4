package auth

import (
	"errors"
	"net/http"
	"strings"
)

var ErrNoSession = errors.New("no valid session")

// Session identifies the authenticated caller of a request.
type Session struct {
	UserID string
	Email  string
	Name   string
}

// SessionResolver extracts the caller's session from a request. Handlers
// receive it as a dependency.
type SessionResolver interface {
	Resolve(r *http.Request) (*Session, error)
}

// JWTResolver accepts a bearer token or the session cookie.
type JWTResolver struct {
	tokens     *TokenService
	cookieName string
}

func NewJWTResolver(tokens *TokenService, cookieName string) *JWTResolver {
	return &JWTResolver{tokens: tokens, cookieName: cookieName}
}

func (r *JWTResolver) Resolve(req *http.Request) (*Session, error) {
	token := bearerToken(req.Header.Get("Authorization"))
	if token == "" && r.cookieName != "" {
		if c, err := req.Cookie(r.cookieName); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		return nil, ErrNoSession
	}

	claims, err := r.tokens.Parse(token)
	if err != nil {
		return nil, ErrNoSession
	}
	return &Session{UserID: claims.UserID, Email: claims.Email, Name: claims.Name}, nil
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// StaticResolver always returns the same session, or none when nil.
type StaticResolver struct {
	Session *Session
}

func (r StaticResolver) Resolve(*http.Request) (*Session, error) {
	if r.Session == nil {
		return nil, ErrNoSession
	}
	s := *r.Session
	return &s, nil
}
