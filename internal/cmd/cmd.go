// Package cmd wires the subcommands into the root command.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/preiter93/cargo-reduce-recipe/internal/cmdutil"
	"github.com/preiter93/cargo-reduce-recipe/internal/members"
	"github.com/preiter93/cargo-reduce-recipe/internal/reduce"
	"github.com/preiter93/cargo-reduce-recipe/internal/ui"
)

// RunWithArgs runs the CLI with the given args and returns the exit code.
func RunWithArgs(args []string, version string) int {
	helper, err := cmdutil.NewHelper(version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.ErrorPrefix, err)
		return 1
	}

	root := &cobra.Command{
		Use:           "cargo-reduce-recipe",
		Short:         "Reduce a prepared workspace recipe to one member and its dependencies.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			helper.ApplyFlags()
		},
	}
	helper.AddFlags(root.PersistentFlags())
	root.AddCommand(reduce.GetCmd(helper))
	root.AddCommand(members.GetCmd(helper))

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
