package pages

// Helpers to load gohtml templates and render them

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
)

//go:embed templates/* static/*
var Files embed.FS

type Pages struct {
	cache   *TmplCache[string, *template.Template]
	embedFS fs.FS
}

func NewPages() *Pages {
	return &Pages{
		cache:   NewTmplCache[string, *template.Template](),
		embedFS: Files,
	}
}

func nameToPath(s string) string {
	return "templates/" + s + ".gohtml"
}

func (p *Pages) parse(stack ...string) (*template.Template, error) {
	return p.cache.GetOrBuild(strings.Join(stack, "|"), func() (*template.Template, error) {
		paths := make([]string, len(stack))
		for i, s := range stack {
			paths[i] = nameToPath(s)
		}
		return template.New(stack[len(stack)-1]).ParseFS(p.embedFS, paths...)
	})
}

// Execute renders the named page inside the base layout.
func (p *Pages) Execute(name string, w io.Writer, params any) error {
	tpl, err := p.parse("layouts/base", name)
	if err != nil {
		return err
	}
	return tpl.ExecuteTemplate(w, "layouts/base", params)
}

func (p *Pages) Static() http.Handler {
	sub, err := fs.Sub(Files, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func Cache(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		h.ServeHTTP(w, r)
	})
}

// Shared view/template params

type Flash struct {
	Message string
	IsError bool
}

type Home struct {
	Authenticated bool
	Flash         *Flash
}

var flashMessages = map[string]string{
	"spotify_auth_failed":           "Spotify authorization was cancelled or failed.",
	"spotify_config_missing":        "Spotify is not configured on this server.",
	"spotify_redirect_uri_missing":  "Spotify redirect URI is not configured on this server.",
	"spotify_token_exchange_failed": "Could not complete the Spotify login. Please try again.",
}

// FlashFromQuery turns the markers the login callback leaves on the root
// URL into a message for the page.
func FlashFromQuery(q url.Values) *Flash {
	if q.Get("auth") == "success" {
		return &Flash{Message: "Connected to Spotify."}
	}
	marker := q.Get("error")
	if marker == "" {
		return nil
	}
	msg, ok := flashMessages[marker]
	if !ok {
		msg = "Something went wrong. Please try again."
	}
	return &Flash{Message: msg, IsError: true}
}
