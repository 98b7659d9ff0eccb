package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/teal-fm/moodmix/config"
	"github.com/teal-fm/moodmix/models"
)

const (
	MinTracks = 10
	MaxTracks = 30
)

const promptTemplate = `You are a music expert and playlist curator. Based on the user's request, create a playlist with 15-25 songs that perfectly match their mood, activity, or preferences.

User request: %q

Generate a diverse playlist with real, popular songs that fit the request. Include a mix of well-known tracks and some hidden gems. Make sure the playlist flows well and matches the vibe described.`

var playlistSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "playlistName": {"type": "string", "description": "A creative name for the playlist"},
    "playlistDescription": {"type": "string", "description": "A brief description of the playlist vibe"},
    "tracks": {
      "type": "array",
      "description": "Array of 15-25 song recommendations",
      "minItems": 10,
      "maxItems": 30,
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string", "description": "Song title"},
          "artist": {"type": "string", "description": "Artist name"}
        },
        "required": ["name", "artist"],
        "additionalProperties": false
      }
    }
  },
  "required": ["playlistName", "playlistDescription", "tracks"],
  "additionalProperties": false
}`)

// Generator drafts playlists with an OpenAI-compatible chat completion
// endpoint.
type Generator struct {
	client    *openai.Client // nil when no API key is configured
	model     string
	maxTokens int
	logger    *slog.Logger
}

func NewGenerator(cfg config.LLMConfig, logger *slog.Logger) *Generator {
	g := &Generator{
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
	if cfg.APIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
		}
		g.client = openai.NewClientWithConfig(clientCfg)
	}
	return g
}

// Generate returns a recommendation of MinTracks to MaxTracks tracks for
// prompt. Failures are *Error values; use KindOf to inspect them.
func (g *Generator) Generate(ctx context.Context, prompt string) (*models.Recommendation, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrInvalidPrompt
	}
	if g.client == nil {
		return nil, &Error{Kind: CredentialMissing, Err: errors.New("no language model API key configured")}
	}

	g.logger.Info("generating playlist", "model", g.model, "prompt", prompt)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(promptTemplate, prompt)},
		},
		MaxTokens: g.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "playlist",
				Schema: playlistSchema,
			},
		},
	})
	if err != nil {
		kind := classify(err)
		g.logger.Error("chat completion failed", "kind", kind, "err", err)
		return nil, &Error{Kind: kind, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Kind: Failure, Err: errors.New("model returned no choices")}
	}

	rec, err := parseRecommendation(resp.Choices[0].Message.Content)
	if err != nil {
		g.logger.Error("unusable model output", "err", err)
		return nil, &Error{Kind: Failure, Err: err}
	}

	g.logger.Info("generated playlist", "name", rec.PlaylistName, "tracks", len(rec.Tracks))
	return rec, nil
}

// parseRecommendation decodes the model output and enforces the track
// bounds: blank entries are dropped and extras past MaxTracks cut.
func parseRecommendation(content string) (*models.Recommendation, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var rec models.Recommendation
	if err := json.Unmarshal([]byte(content), &rec); err != nil {
		return nil, fmt.Errorf("decoding model output: %w", err)
	}

	rec.PlaylistName = strings.TrimSpace(rec.PlaylistName)
	rec.PlaylistDescription = strings.TrimSpace(rec.PlaylistDescription)
	if rec.PlaylistName == "" {
		return nil, errors.New("model output has no playlist name")
	}

	tracks := make([]models.Track, 0, len(rec.Tracks))
	for _, t := range rec.Tracks {
		t.Name, t.Artist = strings.TrimSpace(t.Name), strings.TrimSpace(t.Artist)
		if t.Name == "" || t.Artist == "" {
			continue
		}
		tracks = append(tracks, t)
	}
	if len(tracks) > MaxTracks {
		tracks = tracks[:MaxTracks]
	}
	if len(tracks) < MinTracks {
		return nil, fmt.Errorf("model returned %d usable tracks, need at least %d", len(tracks), MinTracks)
	}

	rec.Tracks = tracks
	return &rec, nil
}
