package spotify

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/handiism/spotify-downloader/internal/model"
)

// ParseURL extracts the resource kind and id from a catalog link such as
// https://open.spotify.com/album/<id> or a spotify:track:<id> URI.
func ParseURL(raw string) (model.Kind, string, error) {
	raw = strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(raw, "spotify:"); ok {
		parts := strings.Split(rest, ":")
		if len(parts) != 2 {
			return 0, "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
		}
		return kindAndID(parts[0], parts[1], raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Hostname() == "" || !strings.HasSuffix(u.Hostname(), "spotify.com") {
		return 0, "", fmt.Errorf("%w: %s is not a spotify url", ErrInvalidURL, raw)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
		segments = segments[1:]
	}
	if len(segments) < 2 {
		return 0, "", fmt.Errorf("%w: could not find an id in %s", ErrInvalidURL, raw)
	}
	return kindAndID(segments[0], segments[1], raw)
}

func kindAndID(kind, id, raw string) (model.Kind, string, error) {
	if id == "" {
		return 0, "", fmt.Errorf("%w: could not find an id in %s", ErrInvalidURL, raw)
	}
	switch kind {
	case "track":
		return model.KindTrack, id, nil
	case "album":
		return model.KindAlbum, id, nil
	case "playlist":
		return model.KindPlaylist, id, nil
	default:
		return 0, "", fmt.Errorf("%w: %s is not a track, album, or playlist", ErrInvalidURL, raw)
	}
}
