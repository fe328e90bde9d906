package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ExtPlaceholder is the fetch tool's output-extension field.
const ExtPlaceholder = "%(ext)s"

// OutputConfig holds output path formatting settings.
//
// FileNameFormat supports placeholders that are replaced with actual values:
//   - {index} - 1-based position in the collection, zero-padded to the
//     digit width of the collection size
//   - {title} - Track title
//   - {artist} - Artist names, comma separated
//   - {album} - Album title
//   - {collection} - Album or playlist name
//   - {year} - Release year
//
// Values are sanitized for file names and have "%" escaped, so the rendered
// template can be handed to yt-dlp as-is. If the format does not contain
// %(ext)s it is appended.
//
// Example:
//
//	cfg := &OutputConfig{
//	    Dir:            "/music/{collection}",
//	    FileNameFormat: "{index} {artist} - {title}",
//	}
//	cfg.Render(4, 12, track, "Abbey Road - The Beatles")
//	// "/music/Abbey Road - The Beatles/05 The Beatles - Come Together.%(ext)s"
type OutputConfig struct {
	// Dir is the directory template. It accepts {collection}.
	Dir string

	// FileNameFormat is the file name template.
	FileNameFormat string
}

// Render computes the output template for the track at index in a
// collection of total tracks.
func (c *OutputConfig) Render(index, total int, track Track, collection string) string {
	name := c.FileNameFormat
	if name == "" {
		name = "{artist} - {title}"
	}
	name = strings.ReplaceAll(name, "{index}", IndexLabel(index, total))
	name = strings.ReplaceAll(name, "{title}", templateValue(track.Name))
	name = strings.ReplaceAll(name, "{artist}", templateValue(track.ArtistString(", ")))
	name = strings.ReplaceAll(name, "{album}", templateValue(track.Album))
	name = strings.ReplaceAll(name, "{collection}", templateValue(collection))
	name = strings.ReplaceAll(name, "{year}", templateValue(track.Year()))
	if !strings.Contains(name, ExtPlaceholder) {
		name += "." + ExtPlaceholder
	}

	dir := strings.ReplaceAll(c.Dir, "{collection}", templateValue(collection))
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// Directory returns the output directory for collection as a file system
// path, without the fetch tool escaping applied by Render.
func (c *OutputConfig) Directory(collection string) string {
	dir := strings.ReplaceAll(c.Dir, "{collection}", SanitizeFileName(collection))
	if dir == "" {
		return "."
	}
	return filepath.Clean(dir)
}

// IndexLabel formats a 0-based index as a 1-based number padded to the digit
// width of total.
func IndexLabel(index, total int) string {
	width := len(strconv.Itoa(max(total, 1)))
	return fmt.Sprintf("%0*d", width, index+1)
}

func templateValue(s string) string {
	return strings.ReplaceAll(SanitizeFileName(s), "%", "%%")
}

var (
	invalidChars  = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots  = regexp.MustCompile(`\.+$`)
	repeatedSpace = regexp.MustCompile(`\s+`)
)

// SanitizeFileName removes or replaces characters that are invalid in file
// and folder names.
//
// Example:
//
//	SanitizeFileName("Song: Part 1/2") // "Song_ Part 1_2"
func SanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = repeatedSpace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
