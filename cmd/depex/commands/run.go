package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/depex/internal/adapters/watcher"
	"go.trai.ch/depex/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [name]",
		Short: "Re-run every command affected by changed inputs",
		Long: `Re-run every command affected by changed inputs.

With a name, that command runs even if nothing changed. By default the commands
downstream of it run too (--all); --only runs just the named command.

A changed input is recorded only once every command that reads it has run.
Inputs with a reader left out of the run, for example by --only, stay pending
and are reported as changed again next time.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Run(cmd.Context(), runOptions(cmd, args))
		},
	}
	addSelectionFlags(cmd)
	return cmd
}

func (c *CLI) newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [name]",
		Short: "Show what run would do without running anything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Plan(cmd.Context(), runOptions(cmd, args))
		},
	}
	addSelectionFlags(cmd)
	return cmd
}

func (c *CLI) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [name]",
		Short: "Run, then run again whenever a declared input changes",
		Long: `Run, then run again whenever a declared input changes.

The set of watched paths is reloaded after every run, so inputs declared from
another shell while watching are picked up once the next run finishes.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			debounce, _ := cmd.Flags().GetDuration("debounce")
			return c.app.Watch(cmd.Context(), app.WatchOptions{
				Run:      runOptions(cmd, args),
				Debounce: debounce,
			})
		},
	}
	addSelectionFlags(cmd)
	cmd.Flags().Duration("debounce", watcher.DefaultDebounceWindow, "Quiet period that ends a batch of changes")
	return cmd
}

func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("only", false, "Run only the named command")
	cmd.Flags().Bool("all", false, "Run the named command and everything downstream of it (default)")
	cmd.MarkFlagsMutuallyExclusive("only", "all")
}

func runOptions(cmd *cobra.Command, args []string) app.RunOptions {
	only, _ := cmd.Flags().GetBool("only")
	opts := app.RunOptions{Only: only}
	if len(args) == 1 {
		opts.Seed = args[0]
	}
	return opts
}
