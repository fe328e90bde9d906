package dto

// JSONAlbum is the album endpoint response.
type JSONAlbum struct {
	JSONAlbumRef
	ID     string          `json:"id"`
	Tracks JSONTrackPaging `json:"tracks"`
}

// JSONTrackPaging is a page of album tracks.
type JSONTrackPaging struct {
	Items []JSONTrack `json:"items"`
	Next  string      `json:"next"`
	Total int         `json:"total"`
}

// JSONPlaylist is the playlist endpoint response.
type JSONPlaylist struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Owner  JSONOwner          `json:"owner"`
	Tracks JSONPlaylistPaging `json:"tracks"`
}

// JSONOwner is the playlist owner.
type JSONOwner struct {
	DisplayName string `json:"display_name"`
}

// JSONPlaylistPaging is a page of playlist entries.
type JSONPlaylistPaging struct {
	Items []JSONPlaylistItem `json:"items"`
	Next  string             `json:"next"`
	Total int                `json:"total"`
}

// JSONPlaylistItem wraps a playlist entry. Track is nil for removed or
// unavailable entries.
type JSONPlaylistItem struct {
	Track *JSONTrack `json:"track"`
}

// JSONToken is the client-credentials token response.
type JSONToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
