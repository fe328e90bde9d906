package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2"

	"github.com/handiism/spotify-downloader/internal/model"
)

// ErrNotMP3 is returned for files that cannot carry ID3 tags.
var ErrNotMP3 = errors.New("audio: not an mp3 file")

// TagEditAction defines how to handle individual ID3 tags.
//
// Each tag field can be configured independently to determine whether
// it should be modified, cleared, or left unchanged.
type TagEditAction int

const (
	// TagEmpty clears the tag value.
	TagEmpty TagEditAction = iota

	// TagModify updates the tag with the catalog value.
	TagModify

	// TagDoNotModify leaves the existing tag value unchanged.
	TagDoNotModify
)

// ParseTagEditAction converts "empty", "modify" or "keep" to a
// TagEditAction.
func ParseTagEditAction(s string) (TagEditAction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "empty", "clear":
		return TagEmpty, nil
	case "modify", "":
		return TagModify, nil
	case "keep", "none":
		return TagDoNotModify, nil
	default:
		return TagModify, fmt.Errorf("unknown tag action %q", s)
	}
}

// TagConfig holds tagging configuration for each ID3 field.
//
// Example:
//
//	cfg := &TagConfig{
//	    ModifyTags:  true,
//	    Artist:      TagModify,      // Update artists from the catalog
//	    Genre:       TagModify,      // Genres of all credited artists
//	    Comments:    TagEmpty,       // Clear any existing comments
//	    AlbumArtist: TagDoNotModify, // Keep whatever yt-dlp wrote
//	}
type TagConfig struct {
	// ModifyTags is a master switch. If false, no text tags are modified.
	ModifyTags bool

	// Artist controls the TPE1 (Lead artist) frame.
	Artist TagEditAction

	// AlbumArtist controls the TPE2 (Album artist) frame.
	AlbumArtist TagEditAction

	// Album controls the TALB (Album title) frame.
	Album TagEditAction

	// Year controls the TYER (Year) frame.
	Year TagEditAction

	// Date controls the TDRC (Recording time) frame (ID3v2.4).
	Date TagEditAction

	// TrackNumber controls the TRCK (Track number) frame.
	TrackNumber TagEditAction

	// DiscNumber controls the TPOS (Part of a set) frame.
	DiscNumber TagEditAction

	// TrackTitle controls the TIT2 (Title) frame.
	TrackTitle TagEditAction

	// Genre controls the TCON (Content type) frame.
	Genre TagEditAction

	// ISRC controls the TSRC frame.
	ISRC TagEditAction

	// Comments controls the COMM (Comments) frame. Modify writes the
	// catalog link of the track.
	Comments TagEditAction
}

// DefaultTagConfig returns the default tag configuration.
//
// By default every tag is set from the catalog and comments are cleared.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		ModifyTags:  true,
		Artist:      TagModify,
		AlbumArtist: TagModify,
		Album:       TagModify,
		Year:        TagModify,
		Date:        TagModify,
		TrackNumber: TagModify,
		DiscNumber:  TagModify,
		TrackTitle:  TagModify,
		Genre:       TagModify,
		ISRC:        TagModify,
		Comments:    TagEmpty,
	}
}

// Tagger writes ID3 tags to MP3 files.
//
// Example:
//
//	tagger := NewTagger(DefaultTagConfig())
//
//	// After yt-dlp wrote the file
//	if err := tagger.SaveTags(download.Path, download.Track, coverJPEG); err != nil {
//	    logger.Warn("tagging failed", zap.Error(err))
//	}
type Tagger struct {
	config *TagConfig
}

// NewTagger creates a new Tagger with the given configuration.
//
// If config is nil, DefaultTagConfig() is used.
func NewTagger(config *TagConfig) *Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	return &Tagger{config: config}
}

// SaveTags writes ID3 tags for track to the MP3 file at path and embeds
// artwork when it is not nil.
//
// Files without the .mp3 extension are rejected with ErrNotMP3.
func (t *Tagger) SaveTags(path string, track model.Track, artwork []byte) error {
	if !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return fmt.Errorf("%w: %s", ErrNotMP3, path)
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open tags: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	if t.config.ModifyTags {
		t.updateStringTags(tag, track)
	}

	if artwork != nil {
		t.updateArtwork(tag, artwork)
	}

	return tag.Save()
}

// updateStringTags updates text-based ID3 frames based on configuration.
func (t *Tagger) updateStringTags(tag *id3v2.Tag, track model.Track) {
	apply(tag, t.config.Artist, "TPE1", track.ArtistString("/"))
	apply(tag, t.config.AlbumArtist, "TPE2", strings.Join(track.AlbumArtists, "/"))
	apply(tag, t.config.Album, "TALB", track.Album)
	apply(tag, t.config.Year, "TYER", track.Year())
	apply(tag, t.config.Date, "TDRC", track.ReleaseDate)
	apply(tag, t.config.TrackTitle, "TIT2", track.Name)
	apply(tag, t.config.Genre, "TCON", strings.Join(track.Genres(), "/"))
	apply(tag, t.config.ISRC, "TSRC", track.ISRC)

	trck := ""
	if track.TrackNumber > 0 {
		trck = strconv.Itoa(track.TrackNumber)
		if track.TotalTracks > 0 {
			trck += "/" + strconv.Itoa(track.TotalTracks)
		}
	}
	apply(tag, t.config.TrackNumber, "TRCK", trck)

	tpos := ""
	if track.DiscNumber > 0 {
		tpos = strconv.Itoa(track.DiscNumber)
	}
	apply(tag, t.config.DiscNumber, "TPOS", tpos)

	commID := tag.CommonID("Comments")
	switch t.config.Comments {
	case TagEmpty:
		tag.DeleteFrames(commID)
	case TagModify:
		tag.DeleteFrames(commID)
		if track.ID != "" {
			tag.AddCommentFrame(id3v2.CommentFrame{
				Encoding:    id3v2.EncodingUTF8,
				Language:    "eng",
				Description: "",
				Text:        track.URL(),
			})
		}
	}
}

// apply sets or clears one text frame. An empty value under TagModify
// leaves the frame alone.
func apply(tag *id3v2.Tag, action TagEditAction, id, value string) {
	switch action {
	case TagEmpty:
		tag.DeleteFrames(id)
	case TagModify:
		if value != "" {
			tag.AddTextFrame(id, id3v2.EncodingUTF8, value)
		}
	}
}

// updateArtwork embeds cover art as an attached picture frame.
func (t *Tagger) updateArtwork(tag *id3v2.Tag, artwork []byte) {
	// Remove any existing cover pictures
	tag.DeleteFrames(tag.CommonID("Attached picture"))

	pic := id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     artwork,
	}
	tag.AddAttachedPicture(pic)
}
