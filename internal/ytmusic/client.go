package ytmusic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdhttp "net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/handiism/spotify-downloader/internal/http"
	"github.com/handiism/spotify-downloader/internal/logging"
)

// Search errors. Transient failures are worth retrying; an unauthenticated
// session is not.
var (
	ErrTransient       = errors.New("ytmusic: transient error")
	ErrUnauthenticated = errors.New("ytmusic: unauthenticated")
	ErrEmpty           = errors.New("ytmusic: no results")
)

// Filter restricts a search to one result type.
type Filter string

const (
	FilterNone      Filter = ""
	FilterSongs     Filter = "EgWKAQIIAWoKEAkQBRAKEAMQBA%3D%3D"
	FilterVideos    Filter = "EgWKAQIQAWoKEAkQChAFEAMQBA%3D%3D"
	FilterAlbums    Filter = "EgWKAQIYAWoKEAkQChAFEAMQBA%3D%3D"
	FilterPlaylists Filter = "EgeKAQQoAEABagoQCRAKEAUQAxAE"
)

var ytcfgPattern = regexp.MustCompile(`(?s)ytcfg\.set\s*\(\s*(\{.+?\})\s*\)\s*;`)

// Client queries the YouTube Music search endpoint with a browser session.
//
// Bootstrap must be called once before Search. It is safe to call Search
// from several goroutines afterwards.
type Client struct {
	http    *http.Client
	baseURL string
	sapisid string
	filter  Filter
	now     func() time.Time
	logger  *zap.Logger

	mu        sync.RWMutex
	visitorID string
	cookies   []string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithFilter sets the result type filter. The default is FilterNone, which
// returns the ranked mix including the top result.
func WithFilter(f Filter) Option {
	return func(c *Client) { c.filter = f }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = logging.OrNop(l) }
}

// WithClock overrides the clock used for SAPISIDHASH timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a search client for the session identified by sapisid.
// An empty sapisid searches anonymously.
func NewClient(hc *http.Client, sapisid string, opts ...Option) *Client {
	c := &Client{
		http:    hc,
		baseURL: origin,
		sapisid: sapisid,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bootstrap loads the music.youtube.com landing page to obtain the visitor
// id and session cookies.
func (c *Client) Bootstrap(ctx context.Context) error {
	header := stdhttp.Header{}
	header.Set("Cookie", "SOCS=CAI")
	body, respHeader, err := c.http.GetWithHeaders(ctx, c.baseURL, header)
	if err != nil {
		return classify(ctx, err)
	}

	visitorID, err := visitorData(body)
	if err != nil {
		return err
	}

	cookies := []string{"SOCS=CAI"}
	for _, sc := range respHeader.Values("Set-Cookie") {
		if pair, _, _ := strings.Cut(sc, ";"); pair != "" {
			cookies = append(cookies, strings.TrimSpace(pair))
		}
	}

	c.mu.Lock()
	c.visitorID = visitorID
	c.cookies = cookies
	c.mu.Unlock()

	c.logger.Debug("ytmusic session ready",
		zap.String("visitor_id", visitorID),
		zap.Int("cookies", len(cookies)))
	return nil
}

// VisitorID returns the visitor id obtained by Bootstrap.
func (c *Client) VisitorID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.visitorID
}

// Search returns ranked candidates for query.
func (c *Client) Search(ctx context.Context, query string) ([]Candidate, error) {
	body := map[string]any{
		"context": map[string]any{
			"client": map[string]any{
				"clientName":    "WEB_REMIX",
				"clientVersion": "1." + c.now().UTC().Format("20060102") + ".01.00",
				"hl":            "en",
			},
			"user": map[string]any{},
		},
		"query": query,
	}
	if c.filter != FilterNone {
		body["params"] = string(c.filter)
	}

	var resp map[string]any
	if err := c.http.PostJSON(ctx, c.baseURL+"/youtubei/v1/search?alt=json", c.headers(), body, &resp); err != nil {
		return nil, classify(ctx, err)
	}

	candidates, err := parseResults(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrEmpty, query)
	}
	return candidates, nil
}

func (c *Client) headers() stdhttp.Header {
	c.mu.RLock()
	visitorID := c.visitorID
	cookies := append([]string(nil), c.cookies...)
	c.mu.RUnlock()

	h := stdhttp.Header{}
	h.Set("Accept", "*/*")
	h.Set("Origin", origin)
	h.Set("X-Origin", origin)
	h.Set("Referer", origin+"/")
	if visitorID != "" {
		h.Set("X-Goog-Visitor-Id", visitorID)
	}
	if c.sapisid != "" {
		hash := SAPISIDHash(c.sapisid, c.now())
		h.Set("Authorization", hash)
		h.Set("Authentication", hash)
		cookies = append(cookies, sapisidCookie+"="+c.sapisid)
	}
	if len(cookies) > 0 {
		h.Set("Cookie", strings.Join(cookies, "; "))
	}
	return h
}

func visitorData(page []byte) (string, error) {
	m := ytcfgPattern.FindSubmatch(page)
	if m == nil {
		return "", fmt.Errorf("%w: ytcfg not found on landing page", ErrTransient)
	}
	var cfg struct {
		VisitorData string `json:"VISITOR_DATA"`
	}
	if err := json.Unmarshal(m[1], &cfg); err != nil {
		return "", fmt.Errorf("%w: decode ytcfg: %v", ErrTransient, err)
	}
	if cfg.VisitorData == "" {
		return "", fmt.Errorf("%w: VISITOR_DATA missing", ErrTransient)
	}
	return cfg.VisitorData, nil
}

// classify maps transport and status errors to the package error kinds.
// Only a done ctx passes through unwrapped; a client timeout is transient.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	var se *http.StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case stdhttp.StatusUnauthorized, stdhttp.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}
