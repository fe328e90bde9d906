package model

import (
	"strings"
	"time"
)

// Artist is a credited performer on a track.
//
// Genres is only populated after artist enrichment; catalog listings return
// simplified artists carrying just ID and Name.
type Artist struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Genres []string `yaml:"genres,omitempty"`
}

// Track is one catalog entry and the metadata needed to search for it and
// tag the downloaded file.
//
// Example:
//
//	track := Track{
//	    ID:      "4uLU6hMCjMI75M1A2tKUQC",
//	    Name:    "Never Gonna Give You Up",
//	    Artists: []Artist{{ID: "0gxyHStUsqpMadRV0Di1Qt", Name: "Rick Astley"}},
//	}
//	track.SearchQuery() // "Never Gonna Give You Up Rick Astley"
type Track struct {
	// ID is the catalog track id.
	ID string `yaml:"id"`

	// Name is the track title.
	Name string `yaml:"name"`

	// Artists lists the credited artists in catalog order.
	Artists []Artist `yaml:"artists"`

	// Album is the parent album title.
	Album string `yaml:"album,omitempty"`

	// AlbumArtists lists the album-level artist names.
	AlbumArtists []string `yaml:"album_artists,omitempty"`

	// CoverURL is the largest album image, empty if none.
	CoverURL string `yaml:"cover_url,omitempty"`

	// ReleaseDate is the album release date as returned by the catalog:
	// "2006", "2006-01" or "2006-01-02".
	ReleaseDate string `yaml:"release_date,omitempty"`

	// TrackNumber is the 1-based position on its disc.
	TrackNumber int `yaml:"track_number,omitempty"`

	// DiscNumber is the 1-based disc number.
	DiscNumber int `yaml:"disc_number,omitempty"`

	// TotalTracks is the album track count.
	TotalTracks int `yaml:"total_tracks,omitempty"`

	// DurationMs is the track length in milliseconds.
	DurationMs int `yaml:"duration_ms,omitempty"`

	// Explicit marks tracks flagged as explicit.
	Explicit bool `yaml:"explicit,omitempty"`

	// ISRC is the International Standard Recording Code, if known.
	ISRC string `yaml:"isrc,omitempty"`
}

// URL returns the public catalog link for the track.
func (t Track) URL() string {
	return "https://open.spotify.com/track/" + t.ID
}

// ArtistNames returns the names of all credited artists.
func (t Track) ArtistNames() []string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}

// ArtistString joins the artist names with sep.
func (t Track) ArtistString(sep string) string {
	return strings.Join(t.ArtistNames(), sep)
}

// Genres returns the de-duplicated genres of all artists in order.
func (t Track) Genres() []string {
	seen := make(map[string]struct{})
	var genres []string
	for _, a := range t.Artists {
		for _, g := range a.Genres {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			genres = append(genres, g)
		}
	}
	return genres
}

// SearchQuery builds the search text: the track name followed by every
// artist name, separated by spaces.
func (t Track) SearchQuery() string {
	parts := append([]string{t.Name}, t.ArtistNames()...)
	return strings.Join(parts, " ")
}

// Year returns the release year, or "" when unknown.
func (t Track) Year() string {
	if len(t.ReleaseDate) < 4 {
		return ""
	}
	return t.ReleaseDate[:4]
}

// Duration returns the track length.
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMs) * time.Millisecond
}
