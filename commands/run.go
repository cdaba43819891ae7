package commands

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jpfa/chat-tui/app"
	"github.com/jpfa/chat-tui/client"
	"github.com/jpfa/chat-tui/engine"
	"github.com/jpfa/chat-tui/logging"
	"github.com/jpfa/chat-tui/markdown"
	"github.com/jpfa/chat-tui/store"
	"github.com/jpfa/chat-tui/style"
)

// runTUI starts the full-screen client and blocks until it exits.
func runTUI(cmd *cobra.Command, opts *globalOptions) error {
	s, err := loadSettings(opts)
	if err != nil {
		return err
	}
	cfg := s.cfg

	logger, logCloser, err := logging.Setup(cfg.Log, s.profileDir)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	state, err := store.Open(s.profileDir)
	if err != nil {
		return err
	}
	defer state.Close()

	applyTheme(cfg.Theme)

	api := client.New(cfg.Server)
	api.Logger = logger.With("component", "client")
	if cfg.Token != "" {
		api.SetToken(cfg.Token)
	}

	streamURL, err := cfg.StreamURL()
	if err != nil {
		return err
	}
	stream, err := client.NewStream(streamURL, client.StreamOptions{
		Token:         cfg.Token,
		MaxReconnects: cfg.Stream.MaxReconnects,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	eng := engine.New(api, engine.Options{
		TrackBackground: cfg.Engine.TrackBackground,
		Preferences:     state,
		Logger:          logger,
	})

	wd, _ := os.Getwd()
	m := app.New(eng, stream, app.Options{
		Server:    cfg.Server,
		Reconnect: cfg.Stream.Reconnect,
		ImageDir:  wd,
		Logger:    logger,
	})

	logger.Info("starting", "version", Version, "server", cfg.Server, "stream", streamURL, "profile_dir", s.profileDir)

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	go func() {
		p.Send(app.ProgramReady{Program: p})
	}()

	_, err = p.Run()
	stream.Close()
	if err != nil {
		return fmt.Errorf("running client: %w", err)
	}
	return nil
}

// applyTheme selects the UI and markdown themes. "auto" follows the
// terminal background.
func applyTheme(name string) {
	if name == "" || name == "auto" {
		name = "light"
		if lipgloss.HasDarkBackground() {
			name = "dark"
		}
	}
	if !style.SetTheme(name) {
		name = "dark"
		style.SetTheme(name)
	}
	markdown.SetStyle(name)
}
