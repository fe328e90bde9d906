package ytmusic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/spotify-downloader/internal/http"
)

var fixedNow = time.Unix(1700000000, 0)

func TestSAPISIDHash(t *testing.T) {
	got := SAPISIDHash("abc", fixedNow)
	assert.Equal(t, "SAPISIDHASH 1700000000_2f3ec011e870f3fbd0238c090c2062c208cead32", got)
	assert.NotEqual(t, got, SAPISIDHash("abd", fixedNow))
}

func TestParseCookie(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "raw headers",
			input: "accept: */*\nCookie: SID=1; __Secure-3PAPISID=xyz/abc; HSID=2\nuser-agent: x",
			want:  "xyz/abc",
		},
		{
			name:  "quoted devtools entry",
			input: `"cookie": "__Secure-3PAPISID=q1; other=2",`,
			want:  "q1",
		},
		{
			name:  "lowercase",
			input: "cookie: a=b; __Secure-3PAPISID=lower",
			want:  "lower",
		},
		{name: "no cookie line", input: "accept: */*", wantErr: true},
		{name: "missing sapisid", input: "Cookie: SID=1; HSID=2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCookie(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnauthenticated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func listItem(title, videoID string, subtitle ...string) map[string]any {
	runs := make([]any, 0, len(subtitle)*2)
	for i, s := range subtitle {
		if i > 0 {
			runs = append(runs, map[string]any{"text": " • "})
		}
		runs = append(runs, map[string]any{"text": s})
	}
	item := map[string]any{
		"flexColumns": []any{
			map[string]any{"musicResponsiveListItemFlexColumnRenderer": map[string]any{
				"text": map[string]any{"runs": []any{map[string]any{"text": title}}},
			}},
			map[string]any{"musicResponsiveListItemFlexColumnRenderer": map[string]any{
				"text": map[string]any{"runs": runs},
			}},
		},
	}
	if videoID != "" {
		item["playlistItemData"] = map[string]any{"videoId": videoID}
	}
	return map[string]any{"musicResponsiveListItemRenderer": item}
}

func searchResponse(sections ...any) map[string]any {
	return map[string]any{
		"contents": map[string]any{
			"tabbedSearchResultsRenderer": map[string]any{
				"tabs": []any{map[string]any{
					"tabRenderer": map[string]any{
						"content": map[string]any{
							"sectionListRenderer": map[string]any{"contents": sections},
						},
					},
				}},
			},
		},
	}
}

func shelf(items ...any) map[string]any {
	return map[string]any{"musicShelfRenderer": map[string]any{"contents": items}}
}

func TestParseResults(t *testing.T) {
	card := map[string]any{"musicCardShelfRenderer": map[string]any{
		"title": map[string]any{"runs": []any{map[string]any{
			"text": "Top Song",
			"navigationEndpoint": map[string]any{
				"watchEndpoint": map[string]any{"videoId": "top1"},
			},
		}}},
		"subtitle": map[string]any{"runs": []any{
			map[string]any{"text": "Song"},
			map[string]any{"text": " • "},
			map[string]any{"text": "Artist A"},
			map[string]any{"text": " • "},
			map[string]any{"text": "3:21"},
		}},
	}}

	resp := searchResponse(
		card,
		shelf(
			listItem("Second", "v2", "Song", "Artist B", "Some Album", "4:05"),
			listItem("No Video", "", "Video", "Artist C", "1.2M views", "2:00"),
		),
	)

	got, err := parseResults(resp)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, Candidate{Title: "Top Song", Artists: []string{"Artist A"}, Kind: "Song", Duration: "3:21", VideoID: "top1"}, got[0])
	assert.Equal(t, Candidate{Title: "Second", Artists: []string{"Artist B"}, Kind: "Song", Album: "Some Album", Duration: "4:05", VideoID: "v2"}, got[1])
	assert.Equal(t, "Video", got[2].Kind)
	assert.Equal(t, []string{"Artist C"}, got[2].Artists)
	assert.False(t, got[2].Valid())
}

func TestParseResultsBadLayout(t *testing.T) {
	_, err := parseResults(map[string]any{"contents": "nope"})
	assert.Error(t, err)
}

func TestCandidate(t *testing.T) {
	c := Candidate{Title: "T", Artists: []string{"A", "B"}, Kind: "Song", Duration: "1:00", VideoID: "vid"}
	assert.True(t, c.Valid())
	assert.Equal(t, "https://music.youtube.com/watch?v=vid", c.Link())
	assert.Equal(t, "T - A, B (Song, 1:00)", c.String())

	bad := Candidate{Title: "x y"}
	assert.False(t, bad.Valid())
	assert.Equal(t, "https://music.youtube.com/search?q=x+y", bad.Link())
	assert.Contains(t, bad.String(), "[unavailable]")
}

type fakeYTM struct {
	server *httptest.Server

	status      int
	response    map[string]any
	lastBody    map[string]any
	lastHeaders stdhttp.Header
}

func newFakeYTM(t *testing.T) *fakeYTM {
	t.Helper()
	f := &fakeYTM{status: stdhttp.StatusOK}
	mux := stdhttp.NewServeMux()
	mux.HandleFunc("/", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if r.URL.Path != "/" {
			stdhttp.NotFound(w, r)
			return
		}
		stdhttp.SetCookie(w, &stdhttp.Cookie{Name: "YSC", Value: "ysc1", Path: "/"})
		fmt.Fprint(w, `<html><script>ytcfg.set({"INNERTUBE":{"x":1},"VISITOR_DATA":"visitor42"});</script></html>`)
	})
	mux.HandleFunc("/youtubei/v1/search", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		raw, _ := io.ReadAll(r.Body)
		f.lastBody = nil
		_ = json.Unmarshal(raw, &f.lastBody)
		f.lastHeaders = r.Header.Clone()
		if f.status != stdhttp.StatusOK {
			w.WriteHeader(f.status)
			return
		}
		_ = json.NewEncoder(w).Encode(f.response)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeYTM) client(sapisid string, opts ...Option) *Client {
	opts = append([]Option{WithBaseURL(f.server.URL), WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewClient(http.NewClient(), sapisid, opts...)
}

func TestBootstrapAndSearch(t *testing.T) {
	f := newFakeYTM(t)
	f.response = searchResponse(shelf(listItem("Song", "v1", "Song", "Artist", "Album", "3:00")))

	c := f.client("sid", WithFilter(FilterSongs))
	require.NoError(t, c.Bootstrap(context.Background()))
	assert.Equal(t, "visitor42", c.VisitorID())

	got, err := c.Search(context.Background(), "song artist")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "v1", got[0].VideoID)

	assert.Equal(t, "song artist", f.lastBody["query"])
	assert.Equal(t, string(FilterSongs), f.lastBody["params"])
	client := f.lastBody["context"].(map[string]any)["client"].(map[string]any)
	assert.Equal(t, "WEB_REMIX", client["clientName"])
	assert.Equal(t, "1."+fixedNow.UTC().Format("20060102")+".01.00", client["clientVersion"])

	assert.Equal(t, "visitor42", f.lastHeaders.Get("X-Goog-Visitor-Id"))
	assert.Equal(t, SAPISIDHash("sid", fixedNow), f.lastHeaders.Get("Authorization"))
	cookie := f.lastHeaders.Get("Cookie")
	assert.Contains(t, cookie, "SOCS=CAI")
	assert.Contains(t, cookie, "YSC=ysc1")
	assert.Contains(t, cookie, "__Secure-3PAPISID=sid")
}

func TestSearchAnonymous(t *testing.T) {
	f := newFakeYTM(t)
	f.response = searchResponse(shelf(listItem("Song", "v1", "Song", "Artist", "3:00")))

	c := f.client("")
	_, err := c.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, f.lastHeaders.Get("Authorization"))
	assert.NotContains(t, f.lastBody, "params")
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response map[string]any
		want     error
	}{
		{"unauthorized", stdhttp.StatusUnauthorized, nil, ErrUnauthenticated},
		{"forbidden", stdhttp.StatusForbidden, nil, ErrUnauthenticated},
		{"server error", stdhttp.StatusInternalServerError, nil, ErrTransient},
		{"bad layout", stdhttp.StatusOK, map[string]any{"contents": 1}, ErrTransient},
		{"no results", stdhttp.StatusOK, searchResponse(shelf()), ErrEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeYTM(t)
			f.status = tt.status
			f.response = tt.response
			_, err := f.client("sid").Search(context.Background(), "q")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBootstrapWithoutConfig(t *testing.T) {
	srv := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		fmt.Fprint(w, "<html></html>")
	}))
	defer srv.Close()

	c := NewClient(http.NewClient(), "", WithBaseURL(srv.URL))
	assert.ErrorIs(t, c.Bootstrap(context.Background()), ErrTransient)
}

func TestSearchTimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(http.NewClient(http.WithTimeout(50*time.Millisecond)), "sid", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "q")
	assert.ErrorIs(t, err, ErrTransient)
}

func TestSearchCancelledIsNotTransient(t *testing.T) {
	srv := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(http.NewClient(), "sid", WithBaseURL(srv.URL)).Search(ctx, "q")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTransient)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
