package spotify

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/spotify-downloader/internal/http"
	"github.com/handiism/spotify-downloader/internal/model"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind model.Kind
		wantID   string
		wantErr  bool
	}{
		{"track", "https://open.spotify.com/track/abc123?si=xyz", model.KindTrack, "abc123", false},
		{"album", "https://open.spotify.com/album/alb", model.KindAlbum, "alb", false},
		{"playlist", "https://open.spotify.com/playlist/pl/", model.KindPlaylist, "pl", false},
		{"intl prefix", "https://open.spotify.com/intl-de/track/t1", model.KindTrack, "t1", false},
		{"uri", "spotify:album:alb2", model.KindAlbum, "alb2", false},
		{"wrong host", "https://example.com/track/abc", 0, "", true},
		{"artist", "https://open.spotify.com/artist/abc", 0, "", true},
		{"no id", "https://open.spotify.com/track", 0, "", true},
		{"bad uri", "spotify:track", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, id, err := ParseURL(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestAccessTokenExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tok := &AccessToken{AccessToken: "x", ExpiresIn: 3600, Granted: now.Add(-30 * time.Minute)}
	assert.False(t, tok.Expired(now))
	assert.True(t, tok.Expired(now.Add(time.Hour)))

	var missing *AccessToken
	assert.True(t, missing.Expired(now))
	assert.True(t, (&AccessToken{AccessToken: "x", ExpiresIn: 3600}).Expired(now))
}

type memoryStore struct {
	tok   *AccessToken
	saved int
}

func (m *memoryStore) LoadToken() (*AccessToken, error) {
	if m.tok == nil {
		return nil, errors.New("no token")
	}
	return m.tok, nil
}

func (m *memoryStore) SaveToken(tok *AccessToken) error {
	m.tok = tok
	m.saved++
	return nil
}

type fakeAPI struct {
	*httptest.Server
	tokenRequests atomic.Int32
	rejectFirst   atomic.Bool
	mux           *stdhttp.ServeMux
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{mux: stdhttp.NewServeMux()}
	api.mux.HandleFunc("/api/token", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		api.tokenRequests.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			w.WriteHeader(stdhttp.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"access_token":"tok%d","token_type":"Bearer","expires_in":3600}`, api.tokenRequests.Load())
	})
	api.Server = httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if r.URL.Path != "/api/token" {
			if api.rejectFirst.CompareAndSwap(true, false) {
				w.WriteHeader(stdhttp.StatusUnauthorized)
				return
			}
			if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer tok") {
				w.WriteHeader(stdhttp.StatusUnauthorized)
				return
			}
		}
		api.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(api.Close)
	return api
}

func (a *fakeAPI) client(opts ...Option) *Client {
	opts = append([]Option{WithBaseURLs(a.URL+"/v1", a.URL)}, opts...)
	return NewClient(http.NewClient(), "id", "secret", opts...)
}

func TestResolveTrack(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("/v1/tracks/t1", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		fmt.Fprint(w, `{
			"id": "t1", "name": "Song", "disc_number": 1, "track_number": 3, "duration_ms": 1000,
			"artists": [{"id": "a1", "name": "Artist"}],
			"external_ids": {"isrc": "USRC1"},
			"album": {"name": "Record", "release_date": "2020-05-01", "total_tracks": 9,
				"images": [{"url": "https://img/large"}, {"url": "https://img/small"}],
				"artists": [{"id": "a1", "name": "Artist"}]}
		}`)
	})

	collection, err := api.client().Resolve(context.Background(), "https://open.spotify.com/track/t1")
	require.NoError(t, err)
	assert.Equal(t, model.KindTrack, collection.Kind)
	assert.Empty(t, collection.Name)
	require.Len(t, collection.Tracks, 1)

	track := collection.Tracks[0]
	assert.Equal(t, "Song", track.Name)
	assert.Equal(t, "Record", track.Album)
	assert.Equal(t, "https://img/large", track.CoverURL)
	assert.Equal(t, "USRC1", track.ISRC)
	assert.Equal(t, 3, track.TrackNumber)
	assert.Equal(t, []string{"Artist"}, track.AlbumArtists)
}

func TestResolveAlbumFillsISRC(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("/v1/albums/al", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		fmt.Fprintf(w, `{
			"id": "al", "name": "Record", "release_date": "1999", "total_tracks": 3,
			"artists": [{"id": "a1", "name": "One"}, {"id": "a2", "name": "Two"}],
			"images": [],
			"tracks": {"items": [
				{"id": "t1", "name": "First", "track_number": 1, "artists": [{"id": "a1", "name": "One"}]},
				{"id": "t2", "name": "Second", "track_number": 2, "artists": [{"id": "a2", "name": "Two"}]}
			], "next": "%s/v1/albums/al/tracks?offset=2"}
		}`, api.URL)
	})
	api.mux.HandleFunc("/v1/albums/al/tracks", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		fmt.Fprint(w, `{"items": [{"id": "t3", "name": "Third", "track_number": 3}], "next": null}`)
	})
	api.mux.HandleFunc("/v1/tracks", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		assert.Equal(t, "t1,t2,t3", r.URL.Query().Get("ids"))
		fmt.Fprint(w, `{"tracks": [
			{"id": "t1", "external_ids": {"isrc": "I1"}},
			{"id": "t2", "external_ids": {"isrc": "I2"}},
			null
		]}`)
	})

	collection, err := api.client().Resolve(context.Background(), "https://open.spotify.com/album/al")
	require.NoError(t, err)
	assert.Equal(t, "Record - One, Two", collection.Name)
	require.Len(t, collection.Tracks, 3)
	assert.Equal(t, "I1", collection.Tracks[0].ISRC)
	assert.Equal(t, "I2", collection.Tracks[1].ISRC)
	assert.Empty(t, collection.Tracks[2].ISRC)
	assert.Equal(t, "Record", collection.Tracks[2].Album)
	assert.Equal(t, "1999", collection.Tracks[2].ReleaseDate)
}

func TestResolvePlaylistPaginates(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("/v1/playlists/pl", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		fmt.Fprintf(w, `{
			"id": "pl", "name": "Mix", "owner": {"display_name": "me"},
			"tracks": {"total": 4, "items": [
				{"track": {"id": "t1", "name": "One"}},
				{"track": null},
				{"track": {"id": "", "name": "Local", "is_local": true}}
			], "next": "%s/v1/playlists/pl/tracks?offset=3"}
		}`, api.URL)
	})
	api.mux.HandleFunc("/v1/playlists/pl/tracks", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		fmt.Fprint(w, `{"items": [{"track": {"id": "t4", "name": "Four"}}], "next": null}`)
	})

	collection, err := api.client().Resolve(context.Background(), "https://open.spotify.com/playlist/pl")
	require.NoError(t, err)
	assert.Equal(t, "Mix - me", collection.Name)
	require.Len(t, collection.Tracks, 2)
	assert.Equal(t, "t1", collection.Tracks[0].ID)
	assert.Equal(t, "t4", collection.Tracks[1].ID)
}

func TestResolveEmptyPlaylist(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("/v1/playlists/empty", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		fmt.Fprint(w, `{"id": "empty", "name": "Nothing", "owner": {}, "tracks": {"items": []}}`)
	})

	_, err := api.client().Resolve(context.Background(), "https://open.spotify.com/playlist/empty")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestErrorClassification(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("/v1/tracks/gone", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusNotFound)
	})
	api.mux.HandleFunc("/v1/tracks/busy", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusServiceUnavailable)
	})

	client := api.client()
	_, err := client.Track(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.Track(context.Background(), "busy")
	assert.ErrorIs(t, err, ErrTransient)

	bad := NewClient(http.NewClient(), "id", "wrong", WithBaseURLs(api.URL+"/v1", api.URL))
	_, err = bad.Token(context.Background())
	assert.Error(t, err)
}

func TestTimeoutIsTransient(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("/v1/tracks/slow", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	hc := http.NewClient(http.WithTimeout(200 * time.Millisecond))
	client := NewClient(hc, "id", "secret", WithBaseURLs(api.URL+"/v1", api.URL))
	_, err := client.Track(context.Background(), "slow")
	assert.ErrorIs(t, err, ErrTransient)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = api.client().Track(ctx, "slow")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTransient)
}

func TestTokenCachingAndRefresh(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("/v1/tracks/t1", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		fmt.Fprint(w, `{"id": "t1", "name": "Song"}`)
	})

	store := &memoryStore{}
	client := api.client(WithTokenStore(store))

	_, err := client.Track(context.Background(), "t1")
	require.NoError(t, err)
	_, err = client.Track(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), api.tokenRequests.Load())
	assert.Equal(t, 1, store.saved)

	api.rejectFirst.Store(true)
	_, err = client.Track(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), api.tokenRequests.Load())
	assert.Equal(t, "tok2", store.tok.AccessToken)
}

func TestStoredTokenIsReused(t *testing.T) {
	api := newFakeAPI(t)
	now := time.Now()
	store := &memoryStore{tok: &AccessToken{AccessToken: "tok-cached", ExpiresIn: 3600, Granted: now}}

	tok, err := api.client(WithTokenStore(store)).Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-cached", tok.AccessToken)
	assert.Zero(t, api.tokenRequests.Load())
}

func TestEnrichArtists(t *testing.T) {
	api := newFakeAPI(t)
	var requests atomic.Int32
	api.mux.HandleFunc("/v1/artists", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		requests.Add(1)
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		assert.LessOrEqual(t, len(ids), bulkLimit)
		var parts []string
		for _, id := range ids {
			if id == "missing" {
				parts = append(parts, "null")
				continue
			}
			parts = append(parts, fmt.Sprintf(`{"id": %q, "name": "Full %s", "genres": ["g-%s"]}`, id, id, id))
		}
		fmt.Fprintf(w, `{"artists": [%s]}`, strings.Join(parts, ","))
	})

	var tracks []model.Track
	for i := 0; i < 60; i++ {
		tracks = append(tracks, model.Track{
			ID:      fmt.Sprintf("t%d", i),
			Artists: []model.Artist{{ID: fmt.Sprintf("a%d", i), Name: "Simple"}},
		})
	}
	tracks[0].Artists = append(tracks[0].Artists, model.Artist{ID: "missing", Name: "Ghost"}, model.Artist{ID: "a1", Name: "Simple"})

	out, err := api.client().EnrichArtists(context.Background(), tracks)
	require.NoError(t, err)
	require.Len(t, out, 60)
	assert.Equal(t, int32(2), requests.Load())

	assert.Equal(t, "Full a0", out[0].Artists[0].Name)
	assert.Equal(t, []string{"g-a0"}, out[0].Artists[0].Genres)
	assert.Equal(t, "Ghost", out[0].Artists[1].Name)
	assert.Equal(t, "Full a1", out[0].Artists[2].Name)
	assert.Equal(t, []string{"g-a59"}, out[59].Genres())
	assert.Equal(t, "Simple", tracks[0].Artists[0].Name, "input must not be modified")
}
