// Package commands implements the jpfa command line. The root command runs
// the terminal client; subcommands manage conversations without it.
package commands

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/jpfa/chat-tui/config"
)

// Version is set at build time with -ldflags "-X".
var Version = "dev"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	server     string
	profile    string
	configPath string
	noColor    bool
}

// Execute runs the root command
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "jpfa",
		Short:   "Terminal chat client",
		Version: Version,
		Long: `A terminal client for the chat backend. Conversations are listed in a
sidebar, replies stream in over a single push connection and the last
opened conversation is restored on the next start.`,
		Example: `  # Start the client against the configured server
  $ jpfa

  # Use another server for this run
  $ jpfa --server http://chat.internal:8000

  # Keep separate state for a second account
  $ jpfa --profile work

  # Manage conversations without the UI
  $ jpfa conversations list
  $ jpfa conversations delete 42`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				lipgloss.SetColorProfile(termenv.Ascii)
				color.NoColor = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("jpfa version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.server, "server", "s", "", "backend base URL (overrides config and JPFA_SERVER)")
	flags.StringVarP(&opts.profile, "profile", "p", "", "named profile for state isolation (~/.jpfa/profiles/<name>)")
	flags.StringVar(&opts.configPath, "config", "", "config file (default <profile dir>/config.yaml)")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable ANSI colors")

	rootCmd.AddCommand(newConversationsCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// settings is the resolved configuration of one invocation.
type settings struct {
	cfg        config.Config
	profileDir string
}

// loadSettings resolves the profile directory and config, then applies
// flag overrides.
func loadSettings(opts *globalOptions) (settings, error) {
	dir, err := config.ProfileDir(opts.profile)
	if err != nil {
		return settings{}, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return settings{}, fmt.Errorf("creating profile dir: %w", err)
	}

	var cfg config.Config
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load(dir)
	}
	if err != nil {
		return settings{}, err
	}

	if opts.server != "" {
		cfg.Server = opts.server
		if err := cfg.Validate(); err != nil {
			return settings{}, fmt.Errorf("--server: %w", err)
		}
	}
	return settings{cfg: cfg, profileDir: dir}, nil
}
