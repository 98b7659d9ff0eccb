package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/teal-fm/moodmix/db"
)

// SQLStore keeps tokens server-side in the sessions table. The browser only
// holds an opaque session id.
type SQLStore struct {
	db       *db.DB
	opts     CookieOptions
	lifetime time.Duration
	logger   *slog.Logger

	sessions map[string]*db.SessionRow // read-through cache
	mu       sync.RWMutex
}

func NewSQLStore(database *db.DB, opts CookieOptions, lifetime time.Duration, logger *slog.Logger) *SQLStore {
	if lifetime <= 0 {
		lifetime = refreshTokenLifetime
	}
	return &SQLStore{
		db:       database,
		opts:     opts,
		lifetime: lifetime,
		logger:   logger,
		sessions: make(map[string]*db.SessionRow),
	}
}

func (s *SQLStore) Get(r *http.Request) (*Token, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	row, ok := s.lookup(cookie.Value)
	if !ok {
		return nil, false
	}

	if time.Now().UTC().After(row.ExpiresAt) {
		s.delete(row.ID)
		return nil, false
	}

	return &Token{AccessToken: row.AccessToken, RefreshToken: row.RefreshToken}, true
}

// Set always issues a fresh session id. Any id the request already carried
// is dropped along with its row.
func (s *SQLStore) Set(w http.ResponseWriter, r *http.Request, tok *Token) error {
	id, err := newSessionID()
	if err != nil {
		return err
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		s.delete(cookie.Value)
	}

	now := time.Now().UTC()
	row := &db.SessionRow{
		ID:           id,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.lifetime),
	}

	if err := s.db.SaveSession(row); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}

	s.mu.Lock()
	s.sessions[id] = row
	s.mu.Unlock()

	http.SetCookie(w, s.opts.cookie(SessionCookie, id, s.lifetime))
	return nil
}

func (s *SQLStore) Clear(w http.ResponseWriter, r *http.Request) error {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		s.delete(cookie.Value)
	}
	http.SetCookie(w, s.opts.expired(SessionCookie))
	return nil
}

// Sweep removes expired rows; the server runs it periodically.
func (s *SQLStore) Sweep(now time.Time) {
	n, err := s.db.DeleteExpiredSessions(now.UTC())
	if err != nil {
		s.logger.Error("sweeping expired sessions", "err", err)
		return
	}

	s.mu.Lock()
	for id, row := range s.sessions {
		if now.After(row.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	if n > 0 {
		s.logger.Info("swept expired sessions", "count", n)
	}
}

func (s *SQLStore) lookup(id string) (*db.SessionRow, bool) {
	s.mu.RLock()
	row, exists := s.sessions[id]
	s.mu.RUnlock()
	if exists {
		return row, true
	}

	row, err := s.db.GetSession(id)
	if err != nil {
		s.logger.Error("loading session", "err", err)
		return nil, false
	}
	if row == nil {
		return nil, false
	}

	s.mu.Lock()
	s.sessions[id] = row
	s.mu.Unlock()
	return row, true
}

func (s *SQLStore) delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	if err := s.db.DeleteSession(id); err != nil {
		s.logger.Error("deleting session", "err", err)
	}
}

func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
