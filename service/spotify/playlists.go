package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"

	"github.com/teal-fm/moodmix/models"
)

// CreatePlaylist creates an empty public playlist owned by userID.
func (c *Client) CreatePlaylist(ctx context.Context, token, userID, name, description string) (*models.Playlist, error) {
	api, err := c.api(ctx, token)
	if err != nil {
		return nil, err
	}

	created, err := api.CreatePlaylistForUser(ctx, userID, name, description, true, false)
	if err != nil {
		return nil, fmt.Errorf("creating playlist for %s: %w", userID, err)
	}

	return &models.Playlist{
		ID:          created.ID.String(),
		Name:        created.Name,
		Description: description,
		ShareURL:    shareURL(created.SimplePlaylist),
	}, nil
}

// AddTracks attaches the catalog ids to the playlist in a single call, in
// the order given.
func (c *Client) AddTracks(ctx context.Context, token, playlistID string, trackIDs []string) error {
	api, err := c.api(ctx, token)
	if err != nil {
		return err
	}

	ids := make([]spotify.ID, len(trackIDs))
	for i, id := range trackIDs {
		ids[i] = spotify.ID(id)
	}

	if _, err := api.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids...); err != nil {
		return fmt.Errorf("adding %d tracks to playlist %s: %w", len(ids), playlistID, err)
	}
	return nil
}

func shareURL(p spotify.SimplePlaylist) string {
	if u := p.ExternalURLs["spotify"]; u != "" {
		return u
	}
	return "https://open.spotify.com/playlist/" + p.ID.String()
}
