package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

var ErrNoToken = errors.New("no spotify access token")

// Client talks to the Spotify Web API on behalf of whichever user's token
// is passed in. It holds no per-user state.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Client for the API rooted at apiURL. An empty apiURL
// means the public Spotify API.
func NewClient(apiURL string) *Client {
	if apiURL != "" && !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	return &Client{
		baseURL: apiURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) api(ctx context.Context, token string) (*spotify.Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))

	var opts []spotify.ClientOption
	if c.baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(c.baseURL))
	}
	return spotify.New(httpClient, opts...), nil
}

// CurrentUserID returns the Spotify user id the token belongs to.
func (c *Client) CurrentUserID(ctx context.Context, token string) (string, error) {
	api, err := c.api(ctx, token)
	if err != nil {
		return "", err
	}

	user, err := api.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching spotify profile: %w", err)
	}
	if user.ID == "" {
		return "", errors.New("spotify profile has no id")
	}
	return user.ID, nil
}

// SearchTrack returns the first track matching query, or nil when the
// catalog has nothing for it.
func (c *Client) SearchTrack(ctx context.Context, token, query string) (*spotify.FullTrack, error) {
	api, err := c.api(ctx, token)
	if err != nil {
		return nil, err
	}

	result, err := api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return nil, fmt.Errorf("searching spotify for %q: %w", query, err)
	}
	if result.Tracks == nil || len(result.Tracks.Tracks) == 0 {
		return nil, nil
	}

	track := result.Tracks.Tracks[0]
	return &track, nil
}
