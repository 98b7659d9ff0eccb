package models

// Track is a song suggested by the language model. It has not been matched
// against the Spotify catalog yet.
type Track struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
}

// Query is the free-text search string for the track.
func (t Track) Query() string {
	return t.Name + " " + t.Artist
}

// ResolvedTrack is a Track matched to a concrete catalog entry.
type ResolvedTrack struct {
	Track
	CatalogID  string `json:"catalogId"`
	CatalogURI string `json:"catalogUri"`
}
