// Package commands implements the CLI commands for depex.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.trai.ch/depex/internal/app"
	"go.trai.ch/depex/internal/build"
	"go.trai.ch/depex/internal/core/domain"
)

// Environment variables that provide defaults for the global flags.
const (
	EnvState     = "DEPEX_STATE"
	EnvLogFormat = "DEPEX_LOG_FORMAT"
)

// CLI represents the command line interface for depex.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Configure(s app.Settings) error
	Init(ctx context.Context, force bool) error
	Add(ctx context.Context, name string, argv []string) error
	Reads(ctx context.Context, name string, paths []string) error
	Writes(ctx context.Context, name string, paths []string) error
	Apply(ctx context.Context, path string) error
	Run(ctx context.Context, opts app.RunOptions) error
	Plan(ctx context.Context, opts app.RunOptions) error
	Watch(ctx context.Context, opts app.WatchOptions) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "depex",
		Short:         "Re-run commands whose inputs changed",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().String("state", envOr(EnvState, domain.DefaultStatePath()),
		"Path of the state record (env "+EnvState+")")
	rootCmd.PersistentFlags().String("log-format", envOr(EnvLogFormat, "pretty"),
		"Log format: pretty or json (env "+EnvLogFormat+")")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		statePath, _ := cmd.Flags().GetString("state")
		logFormat, _ := cmd.Flags().GetString("log-format")
		return c.app.Configure(app.Settings{StatePath: statePath, LogFormat: logFormat})
	}

	rootCmd.AddCommand(c.newInitCmd())
	rootCmd.AddCommand(c.newAddCmd())
	rootCmd.AddCommand(c.newReadsCmd())
	rootCmd.AddCommand(c.newWritesCmd())
	rootCmd.AddCommand(c.newApplyCmd())
	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newPlanCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
