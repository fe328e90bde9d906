package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/handiism/spotify-downloader/internal/download"
	"github.com/handiism/spotify-downloader/internal/model"
	"github.com/handiism/spotify-downloader/internal/ytmusic"
)

// pickerModel lets the user choose one search result. Results without a
// video cannot be chosen.
type pickerModel struct {
	track      model.Track
	candidates []ytmusic.Candidate
	cursor     int

	chosen  int
	done    bool
	aborted bool
}

func newPickerModel(track model.Track, candidates []ytmusic.Candidate) pickerModel {
	p := pickerModel{track: track, candidates: candidates, chosen: -1}
	for i, c := range candidates {
		if c.Valid() {
			p.cursor = i
			break
		}
	}
	return p
}

func (p pickerModel) Init() tea.Cmd { return nil }

func (p pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "up", "k":
		p.cursor = p.step(-1)
	case "down", "j":
		p.cursor = p.step(1)
	case "enter":
		if p.cursor < len(p.candidates) && p.candidates[p.cursor].Valid() {
			p.chosen = p.cursor
			p.done = true
			return p, tea.Quit
		}
	case "esc", "q", "ctrl+c":
		p.aborted = true
		p.done = true
		return p, tea.Quit
	}
	return p, nil
}

// step moves the cursor to the next valid candidate in direction dir.
func (p pickerModel) step(dir int) int {
	for i := p.cursor + dir; i >= 0 && i < len(p.candidates); i += dir {
		if p.candidates[i].Valid() {
			return i
		}
	}
	return p.cursor
}

func (p pickerModel) View() string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Choose a result for %s - %s:", p.track.ArtistString(", "), p.track.Name)))
	b.WriteString("\n\n")
	for i, c := range p.candidates {
		line := fmt.Sprintf("  %s", c)
		switch {
		case i == p.cursor:
			line = albumStyle.Render(fmt.Sprintf("› %s", c))
		case !c.Valid():
			line = dimStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓: move • enter: choose • esc: abort"))
	b.WriteString("\n")
	return b.String()
}

func (p pickerModel) result() (int, error) {
	if p.aborted || p.chosen < 0 {
		return 0, download.ErrSelectionAborted
	}
	return p.chosen, nil
}

// Picker asks the user to choose a search result in a short-lived Bubble
// Tea program. It implements download.Chooser.
type Picker struct {
	in  io.Reader
	out io.Writer
}

// NewPicker creates a Picker reading keys from in and drawing to out.
func NewPicker(in io.Reader, out io.Writer) *Picker {
	return &Picker{in: in, out: out}
}

// Choose runs the picker. Quitting returns download.ErrSelectionAborted.
func (p *Picker) Choose(ctx context.Context, track model.Track, candidates []ytmusic.Candidate) (int, error) {
	if len(candidates) == 0 {
		return 0, download.ErrNoCandidate
	}
	program := tea.NewProgram(newPickerModel(track, candidates),
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out))
	final, err := program.Run()
	if err != nil {
		if ctx.Err() != nil {
			return 0, context.Cause(ctx)
		}
		return 0, fmt.Errorf("run picker: %w", err)
	}
	return final.(pickerModel).result()
}

// pickRequestMsg asks the running TUI to show the picker.
type pickRequestMsg struct {
	track      model.Track
	candidates []ytmusic.Candidate
	reply      chan pickReply
}

type pickReply struct {
	choice int
	err    error
}

// programChooser forwards choices to a running TUI program.
type programChooser struct {
	send func(tea.Msg)
}

func (c programChooser) Choose(ctx context.Context, track model.Track, candidates []ytmusic.Candidate) (int, error) {
	if len(candidates) == 0 {
		return 0, download.ErrNoCandidate
	}
	reply := make(chan pickReply, 1)
	c.send(pickRequestMsg{track: track, candidates: candidates, reply: reply})
	select {
	case r := <-reply:
		return r.choice, r.err
	case <-ctx.Done():
		return 0, context.Cause(ctx)
	}
}
