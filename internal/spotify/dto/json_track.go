package dto

import (
	"github.com/handiism/spotify-downloader/internal/model"
)

// JSONArtist is a simplified or full artist object. Playlist entries may
// omit the id or name of local artists.
type JSONArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

// ToModel converts the artist.
func (a JSONArtist) ToModel() model.Artist {
	return model.Artist{ID: a.ID, Name: a.Name, Genres: a.Genres}
}

// JSONImage is one entry of an images array, largest first.
type JSONImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// JSONAlbumRef is the album object embedded in a track.
type JSONAlbumRef struct {
	Name        string       `json:"name"`
	Artists     []JSONArtist `json:"artists"`
	Images      []JSONImage  `json:"images"`
	ReleaseDate string       `json:"release_date"`
	TotalTracks int          `json:"total_tracks"`
}

// JSONExternalIDs carries the ISRC code.
type JSONExternalIDs struct {
	ISRC string `json:"isrc"`
}

// JSONTrack is a track object. Album listings return tracks without the
// album and external_ids fields.
type JSONTrack struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Artists     []JSONArtist     `json:"artists"`
	Album       *JSONAlbumRef    `json:"album"`
	DiscNumber  int              `json:"disc_number"`
	TrackNumber int              `json:"track_number"`
	DurationMs  int              `json:"duration_ms"`
	Explicit    bool             `json:"explicit"`
	ExternalIDs *JSONExternalIDs `json:"external_ids"`
	IsLocal     bool             `json:"is_local"`
}

// ToModel converts the track. album overrides the embedded album when set.
func (t JSONTrack) ToModel(album *JSONAlbumRef) model.Track {
	track := model.Track{
		ID:          t.ID,
		Name:        t.Name,
		DiscNumber:  t.DiscNumber,
		TrackNumber: t.TrackNumber,
		DurationMs:  t.DurationMs,
		Explicit:    t.Explicit,
	}
	for _, a := range t.Artists {
		track.Artists = append(track.Artists, a.ToModel())
	}
	if t.ExternalIDs != nil {
		track.ISRC = t.ExternalIDs.ISRC
	}

	if album == nil {
		album = t.Album
	}
	if album != nil {
		track.Album = album.Name
		track.ReleaseDate = album.ReleaseDate
		track.TotalTracks = album.TotalTracks
		if len(album.Images) > 0 {
			track.CoverURL = album.Images[0].URL
		}
		for _, a := range album.Artists {
			if a.Name != "" {
				track.AlbumArtists = append(track.AlbumArtists, a.Name)
			}
		}
	}
	return track
}

// Usable reports whether the track can be searched for and fetched.
func (t JSONTrack) Usable() bool {
	return t.ID != "" && t.Name != "" && !t.IsLocal
}

// JSONTracks is the bulk tracks response.
type JSONTracks struct {
	Tracks []*JSONTrack `json:"tracks"`
}

// JSONArtists is the bulk artists response.
type JSONArtists struct {
	Artists []*JSONArtist `json:"artists"`
}
