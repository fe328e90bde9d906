package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/handiism/spotify-downloader/internal/app"
	"github.com/handiism/spotify-downloader/internal/config"
	"github.com/handiism/spotify-downloader/internal/credentials"
	"github.com/handiism/spotify-downloader/internal/logging"
	"github.com/handiism/spotify-downloader/internal/tui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("spotify-tui", pflag.ContinueOnError)
	configFile := fs.StringP("config", "c", "", "YAML config file")
	logFile := fs.String("log-file", "", "write logs to this file")
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := config.Load(*configFile, fs)
	if err != nil {
		return err
	}

	// The screen belongs to the UI; logs only go to a file.
	logger := zap.NewNop()
	if *logFile != "" {
		if logger, err = logging.NewFile(*logFile, settings.Logging.Development, settings.Logging.Verbose); err != nil {
			return err
		}
	}

	// Credentials are prompted for before the UI takes over the terminal.
	prompter := credentials.NewPrompter(os.Stdin, os.Stderr, term.IsTerminal(int(os.Stdin.Fd())))
	a, err := app.New(context.Background(), settings, logger, prompter)
	if err != nil {
		return err
	}
	defer a.Close()

	return tui.Run(settings, a.NewManager)
}
