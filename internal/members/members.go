// Package members implements the members subcommand, a diagnostic listing of
// the workspace members a recipe contains.
package members

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/preiter93/cargo-reduce-recipe/internal/cmdutil"
	"github.com/preiter93/cargo-reduce-recipe/internal/context"
	"github.com/preiter93/cargo-reduce-recipe/internal/graph"
	"github.com/preiter93/cargo-reduce-recipe/internal/recipe"
	"github.com/preiter93/cargo-reduce-recipe/internal/ui"
)

// GetCmd returns the members subcommand for use with cobra
func GetCmd(helper *cmdutil.Helper) *cobra.Command {
	var recipePath string
	cmd := &cobra.Command{
		Use:                   "members [<flags>]",
		Short:                 "List the workspace members of a recipe.",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := run(helper, recipePath); err != nil {
				helper.LogError("%v", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&recipePath, "recipe", "recipe.json", "Path of the recipe snapshot to inspect.")
	return cmd
}

func run(helper *cmdutil.Helper, recipePath string) error {
	contents, err := os.ReadFile(recipePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", recipePath)
	}
	rec, err := recipe.Decode(contents)
	if err != nil {
		return err
	}
	ctx, err := context.Build(rec)
	if err != nil {
		return err
	}

	for _, cycle := range graph.Cycles(&ctx.WorkspaceGraph) {
		helper.Logger.Trace("workspace dependency cycle", "members", cycle)
	}

	for _, name := range ctx.MemberNames {
		info := ctx.MemberInfos[name]
		helper.UI.Output(fmt.Sprintf("%v %v", ui.Bold(name), ui.Dim(info.ManifestPath)))
	}
	return nil
}
