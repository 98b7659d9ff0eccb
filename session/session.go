package session

import (
	"context"
	"net/http"
	"time"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
	SessionCookie      = "session"

	refreshTokenLifetime = 30 * 24 * time.Hour
)

// Token is the credential pair that lets the server act on a user's behalf
// against Spotify.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration // zero means the browser session
}

// Store keeps a browser's Token between requests. Implementations own the
// transport attributes (httpOnly, secure, same-site); callers only see
// get/set/clear.
type Store interface {
	// Get reports false when there is no usable access token.
	Get(r *http.Request) (*Token, bool)
	Set(w http.ResponseWriter, r *http.Request, tok *Token) error
	// Clear is idempotent.
	Clear(w http.ResponseWriter, r *http.Request) error
}

// CookieOptions are the cookie attributes shared by every store.
type CookieOptions struct {
	Secure bool
	Path   string
}

func (o CookieOptions) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	path := o.Path
	if path == "" {
		path = "/"
	}
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge / time.Second)
		c.Expires = time.Now().Add(maxAge)
	}
	return c
}

func (o CookieOptions) expired(name string) *http.Cookie {
	c := o.cookie(name, "", 0)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

type contextKey int

const tokenKey contextKey = iota

func WithToken(ctx context.Context, tok *Token) context.Context {
	return context.WithValue(ctx, tokenKey, tok)
}

func GetToken(ctx context.Context) (*Token, bool) {
	tok, ok := ctx.Value(tokenKey).(*Token)
	return tok, ok && tok != nil && tok.AccessToken != ""
}

// WithPossibleAuth loads the token, if any, into the request context. It
// never rejects a request; handlers decide what an absent token means.
func WithPossibleAuth(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok, ok := store.Get(r); ok {
				r = r.WithContext(WithToken(r.Context(), tok))
			}
			next.ServeHTTP(w, r)
		})
	}
}
