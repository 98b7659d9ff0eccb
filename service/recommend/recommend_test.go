package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/teal-fm/moodmix/config"
	"github.com/teal-fm/moodmix/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeTracks(n int) []models.Track {
	out := make([]models.Track, n)
	for i := range out {
		out[i] = models.Track{Name: fmt.Sprintf("Song %d", i), Artist: fmt.Sprintf("Artist %d", i)}
	}
	return out
}

func modelOutput(t *testing.T, rec models.Recommendation) string {
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

// fakeProvider serves /v1/chat/completions with either a fixed completion
// or a fixed error.
type fakeProvider struct {
	*httptest.Server
	hits    atomic.Int32
	lastReq map[string]any
}

func newFakeProvider(t *testing.T, status int, body string) *fakeProvider {
	p := &fakeProvider{}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.hits.Add(1)
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&p.lastReq)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			io.WriteString(w, body)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": body},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(p.Close)
	return p
}

func newTestGenerator(p *fakeProvider, apiKey string) *Generator {
	return NewGenerator(config.LLMConfig{
		APIKey:    apiKey,
		BaseURL:   p.URL + "/v1",
		Model:     "test-model",
		MaxTokens: 2000,
	}, discardLogger())
}

func TestGenerate(t *testing.T) {
	want := models.Recommendation{
		PlaylistName:        "Rainy Window",
		PlaylistDescription: "Slow songs for grey afternoons",
		Tracks:              makeTracks(12),
	}
	p := newFakeProvider(t, http.StatusOK, modelOutput(t, want))
	g := newTestGenerator(p, "key")

	got, err := g.Generate(context.Background(), "rainy sunday")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.PlaylistName != want.PlaylistName || got.PlaylistDescription != want.PlaylistDescription {
		t.Errorf("got %q / %q", got.PlaylistName, got.PlaylistDescription)
	}
	if len(got.Tracks) != 12 || got.Tracks[0] != want.Tracks[0] {
		t.Errorf("tracks = %v", got.Tracks)
	}

	if p.lastReq["model"] != "test-model" {
		t.Errorf("model = %v", p.lastReq["model"])
	}
	if p.lastReq["max_tokens"] != float64(2000) {
		t.Errorf("max_tokens = %v", p.lastReq["max_tokens"])
	}
	format, _ := p.lastReq["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Errorf("response_format = %v", format)
	}
	msgs, _ := p.lastReq["messages"].([]any)
	if len(msgs) != 1 || !strings.Contains(fmt.Sprint(msgs[0]), "rainy sunday") {
		t.Errorf("messages = %v", msgs)
	}
}

func TestGenerateInvalidPrompt(t *testing.T) {
	p := newFakeProvider(t, http.StatusOK, "{}")
	g := newTestGenerator(p, "key")

	for _, prompt := range []string{"", "   \n"} {
		if _, err := g.Generate(context.Background(), prompt); !errors.Is(err, ErrInvalidPrompt) {
			t.Errorf("Generate(%q) err = %v, want ErrInvalidPrompt", prompt, err)
		}
	}
	if p.hits.Load() != 0 {
		t.Errorf("provider called %d times for invalid prompts", p.hits.Load())
	}
}

func TestGenerateWithoutAPIKey(t *testing.T) {
	p := newFakeProvider(t, http.StatusOK, "{}")
	g := newTestGenerator(p, "")

	_, err := g.Generate(context.Background(), "focus music")
	if KindOf(err) != CredentialMissing {
		t.Errorf("kind = %v, want CredentialMissing (err %v)", KindOf(err), err)
	}
	if p.hits.Load() != 0 {
		t.Error("provider called without an API key")
	}
}

func TestGenerateProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{
			name:   "bad key",
			status: http.StatusUnauthorized,
			body:   `{"error":{"message":"Invalid API Key","type":"invalid_request_error","code":"invalid_api_key"}}`,
			want:   CredentialMissing,
		},
		{
			name:   "unknown model",
			status: http.StatusNotFound,
			body:   `{"error":{"message":"The model does not exist","type":"invalid_request_error","code":"model_not_found"}}`,
			want:   ModelMisconfigured,
		},
		{
			name:   "bad request about model",
			status: http.StatusBadRequest,
			body:   `{"error":{"message":"model does not support json_schema","type":"invalid_request_error"}}`,
			want:   ModelMisconfigured,
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"message":"Rate limit reached","type":"tokens"}}`,
			want:   RateLimited,
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{"error":{"message":"internal error","type":"server_error"}}`,
			want:   Failure,
		},
		{
			name:   "non-json error body",
			status: http.StatusTooManyRequests,
			body:   `slow down`,
			want:   RateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProvider(t, tt.status, tt.body)
			g := newTestGenerator(p, "key")

			_, err := g.Generate(context.Background(), "focus music")
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := KindOf(err); got != tt.want {
				t.Errorf("kind = %v, want %v (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestGenerateTrackBounds(t *testing.T) {
	blanks := makeTracks(10)
	blanks[3].Name = "  "
	blanks[7].Artist = ""

	tests := []struct {
		name       string
		tracks     []models.Track
		wantCount  int
		wantFailed bool
	}{
		{name: "minimum", tracks: makeTracks(10), wantCount: 10},
		{name: "maximum", tracks: makeTracks(30), wantCount: 30},
		{name: "too many truncated", tracks: makeTracks(34), wantCount: 30},
		{name: "too few", tracks: makeTracks(9), wantFailed: true},
		{name: "blanks dropped below minimum", tracks: blanks, wantFailed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := modelOutput(t, models.Recommendation{PlaylistName: "Mix", PlaylistDescription: "d", Tracks: tt.tracks})
			p := newFakeProvider(t, http.StatusOK, out)

			got, err := newTestGenerator(p, "key").Generate(context.Background(), "anything")
			if tt.wantFailed {
				if KindOf(err) != Failure || err == nil {
					t.Errorf("err = %v, want a Failure", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if len(got.Tracks) != tt.wantCount {
				t.Errorf("got %d tracks, want %d", len(got.Tracks), tt.wantCount)
			}
			if got.Tracks[0].Name != "Song 0" {
				t.Errorf("first track = %+v, order not kept", got.Tracks[0])
			}
		})
	}
}

func TestParseRecommendation(t *testing.T) {
	body := `{"playlistName":" Mix ","playlistDescription":"d","tracks":` + mustJSON(makeTracks(10)) + `}`

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "plain", content: body},
		{name: "fenced", content: "```json\n" + body + "\n```"},
		{name: "not json", content: "Here is your playlist!", wantErr: true},
		{name: "no name", content: `{"playlistName":"","tracks":` + mustJSON(makeTracks(10)) + `}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := parseRecommendation(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %t", err, tt.wantErr)
			}
			if err == nil && rec.PlaylistName != "Mix" {
				t.Errorf("PlaylistName = %q, want trimmed Mix", rec.PlaylistName)
			}
		})
	}
}

func TestClassifyWithoutStatus(t *testing.T) {
	tests := []struct {
		msg  string
		want Kind
	}{
		{"missing API key", CredentialMissing},
		{"unknown model foo", ModelMisconfigured},
		{"provider rate limit hit", RateLimited},
		{"connection reset by peer", Failure},
	}

	for _, tt := range tests {
		if got := classify(errors.New(tt.msg)); got != tt.want {
			t.Errorf("classify(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestKindHTTPStatus(t *testing.T) {
	if RateLimited.HTTPStatus() != http.StatusTooManyRequests {
		t.Error("RateLimited should map to 429")
	}
	for _, k := range []Kind{Failure, CredentialMissing, ModelMisconfigured} {
		if k.HTTPStatus() != http.StatusInternalServerError {
			t.Errorf("%v should map to 500", k)
		}
	}
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
