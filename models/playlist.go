package models

// Recommendation is the playlist draft produced by the language model.
type Recommendation struct {
	PlaylistName        string  `json:"playlistName"`
	PlaylistDescription string  `json:"playlistDescription"`
	Tracks              []Track `json:"tracks"`
}

// Playlist represents a playlist created on Spotify
type Playlist struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ShareURL    string   `json:"shareUrl"`
	TrackURIs   []string `json:"trackUris"`
}
