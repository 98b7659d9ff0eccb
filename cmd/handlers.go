package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/teal-fm/moodmix/pages"
	"github.com/teal-fm/moodmix/service/playlist"
	"github.com/teal-fm/moodmix/service/recommend"
	"github.com/teal-fm/moodmix/session"
)

const maxBodyBytes = 1 << 20

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	_, authenticated := session.GetToken(r.Context())
	params := pages.Home{
		Authenticated: authenticated,
		Flash:         pages.FlashFromQuery(r.URL.Query()),
	}

	var buf bytes.Buffer
	if err := app.pages.Execute("home", &buf, params); err != nil {
		app.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (app *application) generatePlaylist(w http.ResponseWriter, r *http.Request) {
	// prompt is decoded loosely so a non-string value reads as invalid
	// rather than as malformed JSON
	var input struct {
		Prompt any `json:"prompt"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		app.clientError(w, http.StatusBadRequest, "Invalid prompt provided")
		return
	}

	prompt, ok := input.Prompt.(string)
	if !ok || strings.TrimSpace(prompt) == "" {
		app.clientError(w, http.StatusBadRequest, "Invalid prompt provided")
		return
	}

	rec, err := app.generator.Generate(r.Context(), prompt)
	if err != nil {
		if errors.Is(err, recommend.ErrInvalidPrompt) {
			app.clientError(w, http.StatusBadRequest, "Invalid prompt provided")
			return
		}
		kind := recommend.KindOf(err)
		app.logger.Error("generating playlist", "kind", kind, "err", err)
		app.clientError(w, kind.HTTPStatus(), kind.Message())
		return
	}

	jsonResponse(w, http.StatusOK, rec)
}

type createPlaylistResponse struct {
	Success     bool   `json:"success"`
	PlaylistURL string `json:"playlistUrl"`
	PlaylistID  string `json:"playlistId"`
	TracksAdded int    `json:"tracksAdded"`
	Warning     string `json:"warning,omitempty"`
}

func newCreatePlaylistResponse(res *playlist.Result) createPlaylistResponse {
	return createPlaylistResponse{
		Success:     true,
		PlaylistURL: res.Playlist.ShareURL,
		PlaylistID:  res.Playlist.ID,
		TracksAdded: res.TracksAdded,
		Warning:     res.Warning,
	}
}

func (app *application) createPlaylist(w http.ResponseWriter, r *http.Request) {
	tok, ok := session.GetToken(r.Context())
	if !ok || tok.AccessToken == "" {
		app.clientError(w, http.StatusUnauthorized, "Not authenticated with Spotify")
		return
	}
	token := tok.AccessToken

	var req playlist.Request
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		app.clientError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	if timeout := app.cfg.Server.RequestTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := app.materializer.Materialize(ctx, token, req)
	switch {
	case err == nil:
		jsonResponse(w, http.StatusOK, newCreatePlaylistResponse(res))
	case errors.Is(err, playlist.ErrProfileFailed):
		app.clientError(w, http.StatusUnauthorized, "Failed to get Spotify user profile")
	case errors.Is(err, playlist.ErrUnauthenticated):
		app.clientError(w, http.StatusUnauthorized, "Not authenticated with Spotify")
	case errors.Is(err, playlist.ErrInvalidInput):
		app.clientError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, playlist.ErrNoTracksFound):
		app.clientError(w, http.StatusBadRequest, "No tracks found on Spotify")
	case errors.Is(err, playlist.ErrPlaylistCreateFailed):
		app.clientError(w, http.StatusInternalServerError, "Failed to create Spotify playlist")
	case errors.Is(err, playlist.ErrTimeout):
		app.logger.Warn("playlist creation abandoned", "err", err)
		app.clientError(w, http.StatusGatewayTimeout, "Playlist creation timed out. Please try again.")
	default:
		app.serverError(w, r, err)
	}
}
