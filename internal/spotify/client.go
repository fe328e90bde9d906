package spotify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	stdhttp "net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/handiism/spotify-downloader/internal/http"
	"github.com/handiism/spotify-downloader/internal/model"
	"github.com/handiism/spotify-downloader/internal/spotify/dto"
)

const (
	defaultAPIBase  = "https://api.spotify.com/v1"
	defaultAuthBase = "https://accounts.spotify.com"

	// bulkLimit is the maximum number of ids per bulk request.
	bulkLimit = 50
)

var (
	ErrNotFound     = errors.New("spotify: not found")
	ErrUnauthorized = errors.New("spotify: unauthorized")
	ErrTransient    = errors.New("spotify: transient error")
	ErrInvalidURL   = errors.New("spotify: invalid url")
	ErrEmpty        = errors.New("spotify: no tracks")
)

// Client reads tracks, albums, playlists and artists from the Spotify Web
// API using the client-credentials flow.
//
// Example usage:
//
//	client := spotify.NewClient(httpClient, id, secret, spotify.WithTokenStore(store))
//	collection, err := client.Resolve(ctx, "https://open.spotify.com/album/1A2GTWGtFfWp7KSQTwWOyo")
type Client struct {
	http     *http.Client
	id       string
	secret   string
	apiBase  string
	authBase string
	store    TokenStore
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	token  *AccessToken
	loaded bool
}

// Option configures a Client.
type Option func(*Client)

// WithTokenStore caches tokens in store.
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) { c.store = store }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBaseURLs overrides the API and accounts endpoints.
func WithBaseURLs(api, auth string) Option {
	return func(c *Client) {
		c.apiBase = strings.TrimRight(api, "/")
		c.authBase = strings.TrimRight(auth, "/")
	}
}

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a Client authenticating with the given credentials.
func NewClient(hc *http.Client, clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		http:     hc,
		id:       clientID,
		secret:   clientSecret,
		apiBase:  defaultAPIBase,
		authBase: defaultAuthBase,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns a valid access token, using the in-memory or stored token
// when it has not expired and requesting a new one otherwise.
func (c *Client) Token(ctx context.Context) (*AccessToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.token.Expired(c.now()) {
		return c.token, nil
	}

	if c.store != nil && !c.loaded {
		c.loaded = true
		if tok, err := c.store.LoadToken(); err == nil && !tok.Expired(c.now()) {
			c.logger.Debug("using cached spotify token")
			c.token = tok
			return tok, nil
		}
	}

	tok, err := c.requestToken(ctx)
	if err != nil {
		return nil, err
	}
	c.token = tok

	if c.store != nil {
		if err := c.store.SaveToken(tok); err != nil {
			c.logger.Warn("failed to save spotify token", zap.Error(err))
		}
	}
	return tok, nil
}

func (c *Client) requestToken(ctx context.Context) (*AccessToken, error) {
	c.logger.Debug("requesting new spotify access token")

	auth := base64.StdEncoding.EncodeToString([]byte(c.id + ":" + c.secret))
	header := stdhttp.Header{"Authorization": {"Basic " + auth}}
	form := url.Values{"grant_type": {"client_credentials"}}

	var resp dto.JSONToken
	if err := c.http.PostForm(ctx, c.authBase+"/api/token", header, form, &resp); err != nil {
		return nil, fmt.Errorf("request access token: %w", classify(ctx, err))
	}

	c.logger.Info("got spotify access token",
		zap.String("type", resp.TokenType),
		zap.Int64("expires_in", resp.ExpiresIn),
	)
	return &AccessToken{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
		ExpiresIn:   resp.ExpiresIn,
		Granted:     c.now(),
	}, nil
}

func (c *Client) invalidate(tok *AccessToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == tok {
		c.token = nil
	}
}

// get fetches an API path or absolute URL into out. A 401 drops the token
// and retries once with a fresh one.
func (c *Client) get(ctx context.Context, pathOrURL string, out any) error {
	target := pathOrURL
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.apiBase + pathOrURL
	}

	for attempt := 0; ; attempt++ {
		tok, err := c.Token(ctx)
		if err != nil {
			return err
		}
		header := stdhttp.Header{"Authorization": {"Bearer " + tok.AccessToken}}
		err = c.http.GetJSON(ctx, target, header, out)
		if err == nil {
			return nil
		}
		err = classify(ctx, err)
		if errors.Is(err, ErrUnauthorized) && attempt == 0 {
			c.logger.Debug("spotify token rejected, refreshing")
			c.invalidate(tok)
			continue
		}
		return err
	}
}

// Resolve fetches the tracks behind a catalog URL.
func (c *Client) Resolve(ctx context.Context, rawURL string) (*model.Collection, error) {
	kind, id, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	var collection *model.Collection
	switch kind {
	case model.KindTrack:
		track, err := c.Track(ctx, id)
		if err != nil {
			return nil, err
		}
		collection = &model.Collection{Kind: kind, Tracks: []model.Track{track}}
	case model.KindAlbum:
		collection, err = c.Album(ctx, id)
	case model.KindPlaylist:
		collection, err = c.Playlist(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if len(collection.Tracks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, rawURL)
	}
	return collection, nil
}

// Track fetches a single track.
func (c *Client) Track(ctx context.Context, id string) (model.Track, error) {
	c.logger.Info("finding track", zap.String("id", id))

	var resp dto.JSONTrack
	if err := c.get(ctx, "/tracks/"+url.PathEscape(id), &resp); err != nil {
		return model.Track{}, fmt.Errorf("get track %s: %w", id, err)
	}
	return resp.ToModel(nil), nil
}

// Album fetches an album's tracks. Album listings omit ISRC codes, so the
// tracks are fetched again in bulk to fill them in.
func (c *Client) Album(ctx context.Context, id string) (*model.Collection, error) {
	c.logger.Info("finding album", zap.String("id", id))

	var resp dto.JSONAlbum
	if err := c.get(ctx, "/albums/"+url.PathEscape(id), &resp); err != nil {
		return nil, fmt.Errorf("get album %s: %w", id, err)
	}

	items := resp.Tracks.Items
	for next := resp.Tracks.Next; next != ""; {
		var page dto.JSONTrackPaging
		if err := c.get(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("get album %s tracks: %w", id, err)
		}
		items = append(items, page.Items...)
		next = page.Next
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.Usable() {
			ids = append(ids, item.ID)
		}
	}
	isrc, err := c.isrcCodes(ctx, ids)
	if err != nil {
		return nil, err
	}

	tracks := make([]model.Track, 0, len(items))
	for _, item := range items {
		if !item.Usable() {
			continue
		}
		track := item.ToModel(&resp.JSONAlbumRef)
		track.ISRC = isrc[item.ID]
		tracks = append(tracks, track)
	}

	artists := make([]string, 0, len(resp.Artists))
	for _, a := range resp.Artists {
		if a.Name != "" {
			artists = append(artists, a.Name)
		}
	}

	return &model.Collection{
		Name:   fmt.Sprintf("%s - %s", resp.Name, strings.Join(artists, ", ")),
		Kind:   model.KindAlbum,
		Tracks: tracks,
	}, nil
}

func (c *Client) isrcCodes(ctx context.Context, ids []string) (map[string]string, error) {
	codes := make(map[string]string, len(ids))
	for chunk := range chunks(ids, bulkLimit) {
		var resp dto.JSONTracks
		if err := c.get(ctx, "/tracks?ids="+strings.Join(chunk, ","), &resp); err != nil {
			return nil, fmt.Errorf("get tracks in bulk: %w", err)
		}
		for _, t := range resp.Tracks {
			if t != nil && t.ExternalIDs != nil {
				codes[t.ID] = t.ExternalIDs.ISRC
			}
		}
	}
	return codes, nil
}

// Playlist fetches every page of a playlist. Removed entries and local files
// are skipped.
func (c *Client) Playlist(ctx context.Context, id string) (*model.Collection, error) {
	c.logger.Info("finding playlist", zap.String("id", id))

	var resp dto.JSONPlaylist
	if err := c.get(ctx, "/playlists/"+url.PathEscape(id), &resp); err != nil {
		return nil, fmt.Errorf("get playlist %s: %w", id, err)
	}

	tracks := make([]model.Track, 0, resp.Tracks.Total)
	appendItems := func(items []dto.JSONPlaylistItem) {
		for _, item := range items {
			if item.Track != nil && item.Track.Usable() {
				tracks = append(tracks, item.Track.ToModel(nil))
			}
		}
	}
	appendItems(resp.Tracks.Items)

	for next := resp.Tracks.Next; next != ""; {
		c.logger.Debug("getting next page of playlist tracks")
		var page dto.JSONPlaylistPaging
		if err := c.get(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("get playlist %s page: %w", id, err)
		}
		appendItems(page.Items)
		next = page.Next
	}

	owner := resp.Owner.DisplayName
	if owner == "" {
		owner = "NO OWNER"
	}
	return &model.Collection{
		Name:   fmt.Sprintf("%s - %s", resp.Name, owner),
		Kind:   model.KindPlaylist,
		Tracks: tracks,
	}, nil
}

// Artists fetches full artist objects in bulk. Artists the API does not
// return are absent from the result map.
func (c *Client) Artists(ctx context.Context, ids []string) (map[string]model.Artist, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	artists := make(map[string]model.Artist, len(unique))
	for chunk := range chunks(unique, bulkLimit) {
		var resp dto.JSONArtists
		if err := c.get(ctx, "/artists?ids="+strings.Join(chunk, ","), &resp); err != nil {
			return nil, fmt.Errorf("get artists in bulk: %w", err)
		}
		for _, a := range resp.Artists {
			if a != nil {
				artists[a.ID] = a.ToModel()
			}
		}
	}
	c.logger.Debug("got artists", zap.Int("count", len(artists)))
	return artists, nil
}

// EnrichArtists replaces the simplified artists of each track with full
// artist objects carrying genres. Artists that cannot be found keep their
// simplified form.
func (c *Client) EnrichArtists(ctx context.Context, tracks []model.Track) ([]model.Track, error) {
	var ids []string
	for _, t := range tracks {
		for _, a := range t.Artists {
			ids = append(ids, a.ID)
		}
	}

	full, err := c.Artists(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]model.Track, len(tracks))
	for i, t := range tracks {
		artists := make([]model.Artist, len(t.Artists))
		for j, a := range t.Artists {
			if f, ok := full[a.ID]; ok {
				artists[j] = f
			} else {
				artists[j] = a
			}
		}
		t.Artists = artists
		out[i] = t
	}
	return out, nil
}

// classify maps transport and status errors to the package error kinds.
// Only a done ctx passes through unwrapped; a client timeout is transient.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	var se *http.StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == stdhttp.StatusUnauthorized || se.Code == stdhttp.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		case se.Code == stdhttp.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case se.Code == stdhttp.StatusTooManyRequests || se.Code >= 500:
			return fmt.Errorf("%w: %v", ErrTransient, err)
		default:
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

func chunks(ids []string, size int) func(func([]string) bool) {
	return func(yield func([]string) bool) {
		for start := 0; start < len(ids); start += size {
			end := min(start+size, len(ids))
			if !yield(ids[start:end]) {
				return
			}
		}
	}
}
