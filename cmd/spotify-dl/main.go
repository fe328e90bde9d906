package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/handiism/spotify-downloader/internal/app"
	"github.com/handiism/spotify-downloader/internal/config"
	"github.com/handiism/spotify-downloader/internal/credentials"
	"github.com/handiism/spotify-downloader/internal/download"
	"github.com/handiism/spotify-downloader/internal/logging"
	"github.com/handiism/spotify-downloader/internal/model"
	"github.com/handiism/spotify-downloader/internal/tui"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1A3"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A8DADC"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1DB954"))
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "\nDownload cancelled.")
		} else {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		}
	}
	stop()
	os.Exit(app.ExitCode(err))
}

type options struct {
	configFile       string
	dryRun           bool
	resetCredentials bool
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "spotify-dl <url> [flags] [-- yt-dlp args...]",
		Short: "Download Spotify tracks, albums and playlists through YouTube Music",
		Long: `spotify-dl resolves a Spotify track, album or playlist, finds every track on
YouTube Music and downloads it with yt-dlp. mp3 files are tagged with the
Spotify metadata.

Arguments after "--" are passed to yt-dlp unchanged.

For interactive mode, use: spotify-tui`,
		Args: func(cmd *cobra.Command, args []string) error {
			if n := cmd.ArgsLenAtDash(); n == 0 || (n < 0 && len(args) == 0) {
				return errors.New("a Spotify URL is required")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, extra := args[0], []string(nil)
			if n := cmd.ArgsLenAtDash(); n >= 0 {
				extra = args[n:]
			}
			return run(cmd, opts, url, extra)
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "YAML config file")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "resolve the URL and list the tracks without downloading")
	cmd.Flags().BoolVar(&opts.resetCredentials, "reset-credentials", false, "forget stored credentials before running")
	config.RegisterFlags(cmd.Flags())

	return cmd
}

func run(cmd *cobra.Command, opts options, url string, extra []string) error {
	ctx := cmd.Context()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	settings, err := config.Load(opts.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	settings.YtDlp.Args = append(settings.YtDlp.Args, extra...)

	logger, err := logging.New(settings.Logging.Development, settings.Logging.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if opts.resetCredentials {
		store, err := app.CredentialStore(settings)
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return err
		}
		logger.Info("credentials cleared", zap.String("dir", store.Dir()))
	}

	interactive := settings.Interactive && term.IsTerminal(int(os.Stdin.Fd()))
	prompter := credentials.NewPrompter(os.Stdin, stderr, interactive)

	a, err := app.New(ctx, settings, logger, prompter)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintln(stdout, titleStyle.Render("♪ Spotify Downloader"))
	fmt.Fprintln(stdout)

	manager := a.NewManager(nil, progressPrinter(stdout, stderr, settings.Logging.Verbose))
	if err := manager.Initialize(ctx, url); err != nil {
		return err
	}

	collection := manager.Collection()
	if opts.dryRun {
		printTracks(stdout, settings, collection)
		return nil
	}
	if interactive && collection.Kind == model.KindTrack {
		manager.SetChooser(tui.NewPicker(os.Stdin, stderr))
	}

	fmt.Fprintln(stdout)
	report, err := manager.StartDownloads(ctx)
	if report != nil {
		printSummary(stdout, report)
	}
	return err
}

// progressPrinter writes run events to out. Counter updates are redrawn in
// place on errOut when it is a terminal.
func progressPrinter(out, errOut io.Writer, verbose bool) func(download.ProgressEvent) {
	tty := false
	if f, ok := errOut.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}

	return func(event download.ProgressEvent) {
		switch event.Level {
		case download.LevelProgress:
			if tty {
				label := "Searching"
				if event.Stage == download.StateFetching {
					label = "Downloading"
				}
				fmt.Fprintf(errOut, "\r%s %d/%d", dimStyle.Render(label), event.Done, event.Total)
				if event.Done == event.Total {
					fmt.Fprintln(errOut)
				}
			}
			return
		case download.LevelVerbose:
			if !verbose {
				return
			}
		}

		var line string
		switch event.Level {
		case download.LevelError:
			line = errorStyle.Render("✗ " + event.Message)
		case download.LevelWarning:
			line = warningStyle.Render("! " + event.Message)
		case download.LevelSuccess:
			line = successStyle.Render("✓ " + event.Message)
		case download.LevelInfo:
			line = infoStyle.Render("› " + event.Message)
		default:
			line = dimStyle.Render("  " + event.Message)
		}
		fmt.Fprintln(out, line)
	}
}

func printTracks(out io.Writer, settings *config.Settings, collection *model.Collection) {
	output := settings.ToOutputConfig()
	name := collection.DisplayName()
	fmt.Fprintln(out, dimStyle.Render("[Dry run - not downloading]"))
	for i, t := range collection.Tracks {
		fmt.Fprintf(out, "%s  %s\n", model.IndexLabel(i, len(collection.Tracks)), t.SearchQuery())
		fmt.Fprintln(out, dimStyle.Render("    -> "+output.Render(i, len(collection.Tracks), t, name)))
	}
}

func printSummary(out io.Writer, r *download.Report) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, dimStyle.Render("────────────────────────────────────────"))
	fmt.Fprintf(out, "Downloaded %d/%d tracks of %s\n", r.Succeeded(), r.Total, r.Collection)
	fmt.Fprintf(out, "Warnings: %d, failures: %d\n", len(r.Warnings), len(r.Failures))
	for _, d := range r.Downloads {
		if d.Fallback {
			fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("  ! #%d %s: lower ranked match %s", d.Index+1, d.Track.Name, d.URL)))
		}
	}
	for _, f := range r.Failures {
		fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("  ✗ #%d %s (%s, %d attempts): %v", f.Index+1, f.Track.Name, f.Stage, f.Attempts, f.Err)))
	}
	if r.FailureReport != "" {
		fmt.Fprintf(out, "Failed tracks: %s\n", r.FailureReport)
	}
	if r.PlaylistPath != "" {
		fmt.Fprintf(out, "Playlist: %s\n", r.PlaylistPath)
	}
	if r.Aborted {
		fmt.Fprintln(out, warningStyle.Render("Run aborted before all tracks were processed."))
	}
}
