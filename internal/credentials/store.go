package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	ioutils "github.com/handiism/spotify-downloader/internal/io"
	"github.com/handiism/spotify-downloader/internal/spotify"
)

const (
	appDir = "spotify-downloader"

	spotifyAppFile   = "spotify_oauth.yaml"
	spotifyTokenFile = "spotify_token.yaml"
	browserDataFile  = "ytm_browser_data"

	secretPerm = 0o600
)

// ErrMissing is returned when a credential has not been stored yet.
var ErrMissing = errors.New("credentials: not stored")

// SpotifyApp is a registered Spotify application.
type SpotifyApp struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Valid reports whether both fields are set.
func (a *SpotifyApp) Valid() bool {
	return a != nil && a.ClientID != "" && a.ClientSecret != ""
}

// DefaultDir returns $XDG_CONFIG_HOME/spotify-downloader, falling back to
// ~/.config/spotify-downloader.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDir), nil
}

// Store keeps credentials as files in one directory. It implements
// spotify.TokenStore.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// LoadSpotifyApp reads the stored application credentials.
func (s *Store) LoadSpotifyApp() (*SpotifyApp, error) {
	var app SpotifyApp
	if err := s.readYAML(spotifyAppFile, &app); err != nil {
		return nil, err
	}
	if !app.Valid() {
		return nil, fmt.Errorf("%w: %s is incomplete", ErrMissing, s.path(spotifyAppFile))
	}
	return &app, nil
}

// SaveSpotifyApp stores application credentials.
func (s *Store) SaveSpotifyApp(app *SpotifyApp) error {
	return s.writeYAML(spotifyAppFile, app)
}

// LoadToken returns the cached access token, or nil when none is stored.
func (s *Store) LoadToken() (*spotify.AccessToken, error) {
	var tok spotify.AccessToken
	if err := s.readYAML(spotifyTokenFile, &tok); err != nil {
		if errors.Is(err, ErrMissing) {
			return nil, nil
		}
		return nil, err
	}
	return &tok, nil
}

// SaveToken caches an access token.
func (s *Store) SaveToken(tok *spotify.AccessToken) error {
	return s.writeYAML(spotifyTokenFile, tok)
}

// LoadBrowserData returns the stored YouTube Music request headers.
func (s *Store) LoadBrowserData() (string, error) {
	data, err := os.ReadFile(s.path(browserDataFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrMissing, s.path(browserDataFile))
		}
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMissing, s.path(browserDataFile))
	}
	return text, nil
}

// SaveBrowserData stores pasted YouTube Music request headers.
func (s *Store) SaveBrowserData(headers string) error {
	return ioutils.WriteFileMode(s.path(browserDataFile), []byte(strings.TrimSpace(headers)+"\n"), secretPerm)
}

// Clear removes every stored credential.
func (s *Store) Clear() error {
	var errs []error
	for _, name := range []string{spotifyAppFile, spotifyTokenFile, browserDataFile} {
		if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) readYAML(name string, out any) error {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissing, s.path(name))
		}
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", s.path(name), err)
	}
	return nil
}

func (s *Store) writeYAML(name string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return ioutils.WriteFileMode(s.path(name), data, secretPerm)
}
