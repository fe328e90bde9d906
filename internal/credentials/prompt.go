package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/handiism/spotify-downloader/internal/ytmusic"
)

// ErrNotInteractive is returned when input is required but prompting is
// disabled.
var ErrNotInteractive = errors.New("credentials: input required in non-interactive mode")

// Prompter asks the user for credentials on a terminal.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	fd          int
	interactive bool
}

// NewPrompter reads from in and writes prompts to out. Secrets are read
// without echo when in is a terminal. A non-interactive prompter fails every
// prompt with ErrNotInteractive.
func NewPrompter(in io.Reader, out io.Writer, interactive bool) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out, fd: -1, interactive: interactive}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
	}
	return p
}

// Line prompts for one line of input.
func (p *Prompter) Line(label string) (string, error) {
	if !p.interactive {
		return "", fmt.Errorf("%w: %s", ErrNotInteractive, label)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("read %s: %w", label, err)
	}
	return strings.TrimSpace(line), nil
}

// Secret prompts for a value without echoing it.
func (p *Prompter) Secret(label string) (string, error) {
	if !p.interactive {
		return "", fmt.Errorf("%w: %s", ErrNotInteractive, label)
	}
	if p.fd < 0 {
		return p.Line(label)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", label, err)
	}
	return strings.TrimSpace(string(b)), nil
}

// Block prompts for multi-line input terminated by an empty line or EOF.
func (p *Prompter) Block(label string) (string, error) {
	if !p.interactive {
		return "", fmt.Errorf("%w: %s", ErrNotInteractive, label)
	}
	fmt.Fprintf(p.out, "%s (finish with an empty line):\n", label)
	var lines []string
	for {
		line, err := p.in.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(trimmed) == "" && len(lines) > 0 {
			break
		}
		if strings.TrimSpace(trimmed) != "" {
			lines = append(lines, trimmed)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", fmt.Errorf("read %s: %w", label, err)
		}
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("read %s: no input", label)
	}
	return strings.Join(lines, "\n"), nil
}

// AppCredentials returns the stored application credentials, prompting for and
// storing them when missing.
func AppCredentials(store *Store, p *Prompter) (*SpotifyApp, error) {
	app, err := store.LoadSpotifyApp()
	if err == nil {
		return app, nil
	}
	if !errors.Is(err, ErrMissing) {
		return nil, err
	}

	fmt.Fprintln(p.out, "Spotify application credentials are required (https://developer.spotify.com/dashboard).")
	id, err := p.Line("Client ID")
	if err != nil {
		return nil, err
	}
	secret, err := p.Secret("Client secret")
	if err != nil {
		return nil, err
	}
	app = &SpotifyApp{ClientID: id, ClientSecret: secret}
	if !app.Valid() {
		return nil, errors.New("client id and secret must not be empty")
	}
	if err := store.SaveSpotifyApp(app); err != nil {
		return nil, err
	}
	return app, nil
}

// BrowserSession returns the SAPISID value from the stored YouTube Music
// request headers, prompting for the headers when missing or unusable.
func BrowserSession(store *Store, p *Prompter) (string, error) {
	data, err := store.LoadBrowserData()
	if err == nil {
		if sapisid, perr := ytmusic.ParseCookie(data); perr == nil {
			return sapisid, nil
		}
	} else if !errors.Is(err, ErrMissing) {
		return "", err
	}

	fmt.Fprintln(p.out, "Open music.youtube.com while logged in, copy the request headers of a")
	fmt.Fprintln(p.out, "POST to /youtubei/v1/browse from the browser devtools and paste them below.")
	data, err = p.Block("Request headers")
	if err != nil {
		return "", err
	}
	sapisid, err := ytmusic.ParseCookie(data)
	if err != nil {
		return "", err
	}
	if err := store.SaveBrowserData(data); err != nil {
		return "", err
	}
	return sapisid, nil
}
