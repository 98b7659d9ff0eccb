package session

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/securecookie"
)

// CookieStore keeps both tokens in their own httpOnly cookies. With a codec
// the values are signed (and encrypted when a block key is given); without
// one they are stored as-is.
type CookieStore struct {
	opts   CookieOptions
	codec  *securecookie.SecureCookie
	logger *slog.Logger
}

func NewCookieStore(opts CookieOptions, hashKey, blockKey []byte, logger *slog.Logger) *CookieStore {
	s := &CookieStore{opts: opts, logger: logger}
	if len(hashKey) > 0 {
		if len(blockKey) == 0 {
			blockKey = nil
		}
		s.codec = securecookie.New(hashKey, blockKey)
		s.codec.MaxAge(int(refreshTokenLifetime.Seconds()))
	}
	return s
}

func (s *CookieStore) Get(r *http.Request) (*Token, bool) {
	access, ok := s.read(r, AccessTokenCookie)
	if !ok || access == "" {
		return nil, false
	}
	refresh, _ := s.read(r, RefreshTokenCookie)
	return &Token{AccessToken: access, RefreshToken: refresh}, true
}

func (s *CookieStore) Set(w http.ResponseWriter, r *http.Request, tok *Token) error {
	access, err := s.encode(AccessTokenCookie, tok.AccessToken)
	if err != nil {
		return err
	}
	http.SetCookie(w, s.opts.cookie(AccessTokenCookie, access, tok.ExpiresIn))

	if tok.RefreshToken != "" {
		refresh, err := s.encode(RefreshTokenCookie, tok.RefreshToken)
		if err != nil {
			return err
		}
		http.SetCookie(w, s.opts.cookie(RefreshTokenCookie, refresh, refreshTokenLifetime))
	}
	return nil
}

func (s *CookieStore) Clear(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, s.opts.expired(AccessTokenCookie))
	http.SetCookie(w, s.opts.expired(RefreshTokenCookie))
	return nil
}

func (s *CookieStore) read(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	if s.codec == nil {
		return c.Value, true
	}
	var v string
	if err := s.codec.Decode(name, c.Value, &v); err != nil {
		if s.logger != nil {
			s.logger.Warn("discarding undecodable cookie", "cookie", name, "err", err)
		}
		return "", false
	}
	return v, true
}

func (s *CookieStore) encode(name, value string) (string, error) {
	if s.codec == nil {
		return value, nil
	}
	return s.codec.Encode(name, value)
}
