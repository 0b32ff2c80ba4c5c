package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/fillmap/cmd/fillmap/cmd/citations"
	"github.com/agentstation/fillmap/cmd/fillmap/cmd/grid"
	"github.com/agentstation/fillmap/cmd/fillmap/cmd/mapping"
	"github.com/agentstation/fillmap/cmd/fillmap/cmd/overlay"
	"github.com/agentstation/fillmap/cmd/fillmap/cmd/resolve"
	"github.com/agentstation/fillmap/cmd/fillmap/cmd/runs"
	"github.com/agentstation/fillmap/cmd/fillmap/cmd/serve"
	"github.com/agentstation/fillmap/cmd/fillmap/cmd/status"
	"github.com/agentstation/fillmap/cmd/fillmap/cmd/version"
	"github.com/agentstation/fillmap/internal/cmd/output"
)

// Execute runs the fillmap CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "fillmap",
		Short:   "Spreadsheet fill review CLI",
		Version: a.build.Version,
		Long: `Fillmap reconciles PDF extraction results with spreadsheet templates.

It shows the value every cell will display, lets reviewers add, edit and
remove cell mappings, resolves citations back to source pages, and serves
the review windows over HTTP with WebSocket and SSE channels.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands:",
	})

	rootCmd.PersistentFlags().StringVar(&a.config.ConfigFile, "config", "", "config file (default is $HOME/.fillmap.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().BoolVar(&a.config.NoColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&a.config.Format, "format", "o", a.config.Format, "output format: table, json, yaml, wide")
	rootCmd.PersistentFlags().StringVar(&a.config.LogLevel, "log-level", a.config.LogLevel, "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("fillmap {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	// Flags are bound to config fields, so read them before a reload
	// overwrites those fields.
	verbose := mustGetBool(cmd, "verbose")
	quiet := mustGetBool(cmd, "quiet")
	noColor := mustGetBool(cmd, "no-color")
	format := changedString(cmd, "format")
	logLevel := changedString(cmd, "log-level")

	if path := changedString(cmd, "config"); path != "" {
		if err := a.reloadConfig(path); err != nil {
			return err
		}
	}

	a.config.UpdateFromFlags(verbose, quiet, noColor, format, logLevel)
	if _, err := output.ParseFormat(a.config.Format); err != nil {
		return err
	}

	logger := NewLogger(a.config)
	a.logger = &logger

	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(runs.NewCommand(a))
	rootCmd.AddCommand(resolve.NewCommand(a))
	rootCmd.AddCommand(grid.NewCommand(a))
	rootCmd.AddCommand(mapping.NewCommand(a))
	rootCmd.AddCommand(citations.NewCommand(a))
	rootCmd.AddCommand(overlay.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(status.NewCommand(a))
	rootCmd.AddCommand(serve.NewCommand(a, &a.config.Server))

	// Utility commands
	rootCmd.AddCommand(version.NewCommand(a))
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		//nolint:errcheck // Ignoring write error since we're exiting anyway
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// changedString returns a string flag only when it was set on the command line.
func changedString(cmd *cobra.Command, name string) string {
	if !cmd.Flags().Changed(name) {
		return ""
	}
	return mustGetString(cmd, name)
}
