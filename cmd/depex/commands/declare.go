package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty state record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			force, _ := cmd.Flags().GetBool("force")
			return c.app.Init(cmd.Context(), force)
		},
	}
	cmd.Flags().BoolP("force", "f", false, "Overwrite an existing state record")
	return cmd
}

func (c *CLI) newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name> <argv...>",
		Short: "Declare a command and its invocation",
		Example: `  depex add readcorpus python3 read-corpus.py file.txt
  depex add lint -- golangci-lint run ./...`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Add(cmd.Context(), args[0], args[1:])
		},
	}
	// Flags after the name belong to the declared invocation.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func (c *CLI) newReadsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reads <name> <paths...>",
		Short: "Declare files a command reads",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Reads(cmd.Context(), args[0], args[1:])
		},
	}
}

func (c *CLI) newWritesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "writes <name> <paths...>",
		Short: "Declare files a command writes",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Writes(cmd.Context(), args[0], args[1:])
		},
	}
}

func (c *CLI) newApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply [manifest]",
		Short: "Declare every command of a YAML manifest (default depex.yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return c.app.Apply(cmd.Context(), path)
		},
	}
}
