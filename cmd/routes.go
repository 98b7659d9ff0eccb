package main

import (
	"net/http"

	"github.com/justinas/alice"

	"github.com/teal-fm/moodmix/pages"
	"github.com/teal-fm/moodmix/session"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", pages.Cache(app.pages.Static()))
	mux.HandleFunc("GET /{$}", app.home)

	// OAuth Routes
	mux.HandleFunc("GET /api/auth/spotify", app.bridge.HandleLogin)
	mux.HandleFunc("GET /api/auth/spotify/callback", app.bridge.HandleCallback)
	mux.HandleFunc("POST /api/auth/spotify/logout", app.bridge.HandleLogout)
	mux.HandleFunc("GET /api/auth/spotify/status", app.bridge.HandleStatus)

	mux.HandleFunc("POST /api/generate-playlist", app.generatePlaylist)
	mux.HandleFunc("POST /api/create-spotify-playlist", app.createPlaylist)

	standard := alice.New(app.recoverPanic, app.logRequest, commonHeaders, session.WithPossibleAuth(app.sessions))
	return standard.Then(mux)
}
