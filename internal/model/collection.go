package model

// Kind is the type of catalog resource a source URL points to.
type Kind int

const (
	KindTrack Kind = iota
	KindAlbum
	KindPlaylist
)

func (k Kind) String() string {
	switch k {
	case KindTrack:
		return "track"
	case KindAlbum:
		return "album"
	case KindPlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

// Collection is the ordered track list resolved from a source URL.
type Collection struct {
	// Name is "<album> - <artists>" or "<playlist> - <owner>"; empty for a
	// single track.
	Name string

	Kind   Kind
	Tracks []Track
}

// DisplayName returns Name, falling back to the first track name.
func (c *Collection) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.Tracks) > 0 {
		return c.Tracks[0].Name
	}
	return "unknown"
}

// Match is a track resolved to a downloadable video.
type Match struct {
	Track Track

	// URL is the video link handed to the fetch tool.
	URL string

	// Title is the title of the chosen search result.
	Title string

	// Choice is the rank of the chosen search result; 0 is the best result.
	Choice int
}

// Download is a fetched track.
type Download struct {
	// Index is the 0-based position of the track in its collection.
	Index int

	Track Track
	URL   string

	// Path is the file written by the fetch tool.
	Path string

	// Fallback is set when the match was not the best search result.
	Fallback bool
}
