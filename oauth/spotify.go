package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	spotifyendpoint "golang.org/x/oauth2/spotify"

	"github.com/teal-fm/moodmix/config"
	"github.com/teal-fm/moodmix/session"
)

// Markers appended to the application root after the callback.
const (
	ErrAuthFailed          = "spotify_auth_failed"
	ErrConfigMissing       = "spotify_config_missing"
	ErrRedirectURIMissing  = "spotify_redirect_uri_missing"
	ErrTokenExchangeFailed = "spotify_token_exchange_failed"
)

var Scopes = []string{
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// Bridge runs the Spotify authorization code flow and hands the resulting
// tokens to a session.Store.
type Bridge struct {
	cfg        config.SpotifyConfig
	rootURL    string
	store      session.Store
	httpClient *http.Client
	logger     *slog.Logger
}

func NewBridge(cfg config.SpotifyConfig, rootURL string, store session.Store, logger *slog.Logger) *Bridge {
	return &Bridge{
		cfg:        cfg,
		rootURL:    rootURL,
		store:      store,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (b *Bridge) oauthConfig() *oauth2.Config {
	endpoint := spotifyendpoint.Endpoint
	if b.cfg.AuthURL != "" {
		endpoint.AuthURL = b.cfg.AuthURL
	}
	if b.cfg.TokenURL != "" {
		endpoint.TokenURL = b.cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInHeader

	return &oauth2.Config{
		ClientID:     b.cfg.ClientID,
		ClientSecret: b.cfg.ClientSecret,
		RedirectURL:  b.cfg.RedirectURI,
		Scopes:       Scopes,
		Endpoint:     endpoint,
	}
}

// HandleLogin redirects the user to the Spotify authorization page.
func (b *Bridge) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if b.cfg.ClientID == "" {
		b.logger.Error("login requested without spotify.client_id")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Spotify client ID not configured"})
		return
	}
	if b.cfg.RedirectURI == "" {
		b.logger.Error("login requested without spotify.redirect_uri")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Spotify redirect URI not configured"})
		return
	}

	http.Redirect(w, r, b.oauthConfig().AuthCodeURL(""), http.StatusFound)
}

// HandleCallback exchanges the authorization code for tokens and stores
// them. Every outcome is a redirect back to the application root.
func (b *Bridge) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")

	if authErr := q.Get("error"); authErr != "" || code == "" {
		b.logger.Warn("spotify authorization failed", "error", authErr)
		b.redirect(w, r, "error", ErrAuthFailed)
		return
	}

	if b.cfg.ClientID == "" || b.cfg.ClientSecret == "" {
		b.logger.Error("callback without spotify client credentials")
		b.redirect(w, r, "error", ErrConfigMissing)
		return
	}
	if b.cfg.RedirectURI == "" {
		b.logger.Error("callback without spotify.redirect_uri")
		b.redirect(w, r, "error", ErrRedirectURIMissing)
		return
	}

	ctx := context.WithValue(r.Context(), oauth2.HTTPClient, b.httpClient)
	token, err := b.oauthConfig().Exchange(ctx, code)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil {
			b.logger.Error("spotify token exchange rejected", "status", rErr.Response.StatusCode, "body", string(rErr.Body))
		} else {
			b.logger.Error("spotify token exchange failed", "err", err)
		}
		b.redirect(w, r, "error", ErrTokenExchangeFailed)
		return
	}

	tok := &session.Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		tok.ExpiresIn = time.Until(token.Expiry).Round(time.Second)
	}

	if err := b.store.Set(w, r, tok); err != nil {
		b.logger.Error("storing spotify token", "err", err)
		b.redirect(w, r, "error", ErrTokenExchangeFailed)
		return
	}

	b.logger.Info("spotify login complete")
	b.redirect(w, r, "auth", "success")
}

// HandleLogout always succeeds, whether or not a session existed.
func (b *Bridge) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := b.store.Clear(w, r); err != nil {
		b.logger.Warn("clearing session", "err", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleStatus reports whether an access token is present. The token is not
// checked against Spotify; a revoked token still reads as authenticated.
func (b *Bridge) HandleStatus(w http.ResponseWriter, r *http.Request) {
	_, ok := b.store.Get(r)

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": ok})
}

func (b *Bridge) redirect(w http.ResponseWriter, r *http.Request, key, value string) {
	target, err := url.Parse(b.rootURL)
	if err != nil || b.rootURL == "" {
		target = &url.URL{Path: "/"}
	}
	q := target.Query()
	q.Set(key, value)
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}
