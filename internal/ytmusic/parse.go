package ytmusic

import (
	"fmt"
	"strings"
)

// Candidate is one search result in ranked order.
type Candidate struct {
	Title    string
	Artists  []string
	Kind     string
	Album    string
	Duration string
	VideoID  string
}

// Valid reports whether the candidate can be fetched.
func (c Candidate) Valid() bool {
	return c.VideoID != ""
}

// Link returns the watch URL, or the search page when the candidate has no
// video.
func (c Candidate) Link() string {
	if !c.Valid() {
		return origin + "/search?q=" + strings.ReplaceAll(c.Title, " ", "+")
	}
	return origin + "/watch?v=" + c.VideoID
}

func (c Candidate) String() string {
	var b strings.Builder
	b.WriteString(c.Title)
	if len(c.Artists) > 0 {
		b.WriteString(" - ")
		b.WriteString(strings.Join(c.Artists, ", "))
	}
	var meta []string
	if c.Kind != "" {
		meta = append(meta, c.Kind)
	}
	if c.Album != "" {
		meta = append(meta, c.Album)
	}
	if c.Duration != "" {
		meta = append(meta, c.Duration)
	}
	if len(meta) > 0 {
		b.WriteString(" (" + strings.Join(meta, ", ") + ")")
	}
	if !c.Valid() {
		b.WriteString(" [unavailable]")
	}
	return b.String()
}

// knownKinds are the result types shown as the first subtitle run.
var knownKinds = map[string]bool{
	"Song": true, "Video": true, "Album": true, "Single": true, "EP": true,
	"Playlist": true, "Artist": true, "Episode": true, "Podcast": true, "Profile": true,
}

// parseResults extracts ranked candidates from a search response. The top
// result card, when present, comes first.
func parseResults(resp map[string]any) ([]Candidate, error) {
	sections, ok := nav(resp,
		"contents", "tabbedSearchResultsRenderer", "tabs", 0,
		"tabRenderer", "content", "sectionListRenderer", "contents").([]any)
	if !ok {
		// Filtered searches skip the tab wrapper.
		sections, ok = nav(resp, "contents", "sectionListRenderer", "contents").([]any)
	}
	if !ok {
		return nil, fmt.Errorf("unexpected search response layout")
	}

	var out []Candidate
	for _, section := range sections {
		if card, ok := nav(section, "musicCardShelfRenderer").(map[string]any); ok {
			if c, ok := parseCard(card); ok {
				out = append(out, c)
			}
			for _, item := range asSlice(nav(card, "contents")) {
				if r, ok := nav(item, "musicResponsiveListItemRenderer").(map[string]any); ok {
					if c, ok := parseListItem(r); ok {
						out = append(out, c)
					}
				}
			}
			continue
		}
		for _, item := range asSlice(nav(section, "musicShelfRenderer", "contents")) {
			if r, ok := nav(item, "musicResponsiveListItemRenderer").(map[string]any); ok {
				if c, ok := parseListItem(r); ok {
					out = append(out, c)
				}
			}
		}
	}
	return out, nil
}

func parseCard(card map[string]any) (Candidate, bool) {
	title, _ := nav(card, "title", "runs", 0, "text").(string)
	if title == "" {
		return Candidate{}, false
	}
	c := Candidate{Title: title}
	c.VideoID, _ = nav(card, "title", "runs", 0, "navigationEndpoint", "watchEndpoint", "videoId").(string)
	applySubtitle(&c, runTexts(nav(card, "subtitle", "runs")))
	return c, true
}

func parseListItem(item map[string]any) (Candidate, bool) {
	columns := asSlice(nav(item, "flexColumns"))
	if len(columns) == 0 {
		return Candidate{}, false
	}
	title, _ := nav(columns[0], "musicResponsiveListItemFlexColumnRenderer", "text", "runs", 0, "text").(string)
	if title == "" {
		return Candidate{}, false
	}

	c := Candidate{Title: title}
	if id, ok := nav(item, "playlistItemData", "videoId").(string); ok {
		c.VideoID = id
	} else if id, ok := nav(item, "overlay", "musicItemThumbnailOverlayRenderer", "content",
		"musicPlayButtonRenderer", "playNavigationEndpoint", "watchEndpoint", "videoId").(string); ok {
		c.VideoID = id
	}

	var subtitle []string
	for _, col := range columns[1:] {
		subtitle = append(subtitle, runTexts(nav(col, "musicResponsiveListItemFlexColumnRenderer", "text", "runs"))...)
	}
	applySubtitle(&c, subtitle)
	return c, true
}

// applySubtitle reads "Kind • Artist • Album • 3:45" style runs.
func applySubtitle(c *Candidate, runs []string) {
	var fields []string
	for _, r := range runs {
		r = strings.TrimSpace(r)
		if r == "" || r == "•" || r == "&" || r == "," {
			continue
		}
		fields = append(fields, r)
	}
	if len(fields) == 0 {
		return
	}
	if knownKinds[fields[0]] {
		c.Kind = fields[0]
		fields = fields[1:]
	}
	if n := len(fields); n > 0 && isDuration(fields[n-1]) {
		c.Duration = fields[n-1]
		fields = fields[:n-1]
	}
	// The remaining fields are artists, then optionally album and view
	// or play counts.
	for i, f := range fields {
		if strings.HasSuffix(f, " views") || strings.HasSuffix(f, " plays") {
			continue
		}
		if i > 0 && i == len(fields)-1 && c.Kind == "Song" {
			c.Album = f
			continue
		}
		c.Artists = append(c.Artists, f)
	}
}

func isDuration(s string) bool {
	if !strings.Contains(s, ":") {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != ':' {
			return false
		}
	}
	return true
}

func runTexts(v any) []string {
	var out []string
	for _, run := range asSlice(v) {
		if text, ok := nav(run, "text").(string); ok {
			out = append(out, text)
		}
	}
	return out
}

// nav walks decoded JSON by object keys (string) and array indices (int).
// It returns nil when any step is missing.
func nav(v any, path ...any) any {
	for _, step := range path {
		switch key := step.(type) {
		case string:
			m, ok := v.(map[string]any)
			if !ok {
				return nil
			}
			v = m[key]
		case int:
			s, ok := v.([]any)
			if !ok || key < 0 || key >= len(s) {
				return nil
			}
			v = s[key]
		default:
			return nil
		}
	}
	return v
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}
