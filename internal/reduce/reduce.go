package reduce

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/preiter93/cargo-reduce-recipe/internal/cmdutil"
	"github.com/preiter93/cargo-reduce-recipe/internal/recipe"
	"github.com/preiter93/cargo-reduce-recipe/internal/ui"
)

type opts struct {
	member     string
	recipePath string
	outputPath string
}

func addReduceFlags(opts *opts, flags *pflag.FlagSet) {
	flags.StringVar(&opts.member, "member", "", "Workspace member to act as the root of the reduced recipe (required).")
	flags.StringVar(&opts.recipePath, "recipe", "recipe.json", "Path of the recipe snapshot to reduce.")
	flags.StringVar(&opts.outputPath, "out", "reduced-recipe.json", "Path the reduced snapshot is written to.")
}

// GetCmd returns the reduce subcommand for use with cobra
func GetCmd(helper *cmdutil.Helper) *cobra.Command {
	opts := &opts{}
	cmd := &cobra.Command{
		Use:                   "reduce --member=<member name> [<flags>]",
		Short:                 "Reduce a recipe to one workspace member and its dependencies.",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.member == "" {
				err := errors.New("a root member must be specified")
				helper.LogError("%v", err)
				return err
			}
			r := &reduceRun{base: helper}
			if err := r.run(opts); err != nil {
				helper.LogError("%v", err)
				return err
			}
			return nil
		},
	}
	addReduceFlags(opts, cmd.Flags())
	return cmd
}

type reduceRun struct {
	base *cmdutil.Helper
}

func (r *reduceRun) run(opts *opts) error {
	r.base.Logger.Trace("member", "value", opts.member)
	r.base.Logger.Trace("recipe", "value", opts.recipePath)
	r.base.Logger.Trace("out", "value", opts.outputPath)

	contents, err := os.ReadFile(opts.recipePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", opts.recipePath)
	}

	r.base.UI.Output(fmt.Sprintf("Reducing recipe for %v in %v", ui.Bold(opts.member), ui.Bold(opts.outputPath)))

	rec, err := recipe.Decode(contents)
	if err != nil {
		return err
	}
	result, err := Reduce(rec, opts.member)
	if err != nil {
		return err
	}

	for _, member := range result.RetainedMembers {
		r.base.UI.Output(fmt.Sprintf(" - Kept %v", member))
	}
	r.base.Logger.Debug("retained lock entries", "count", len(result.RetainedPackages))

	var buf bytes.Buffer
	if err := result.Recipe.Encode(&buf); err != nil {
		return err
	}
	// the output file is only touched after the reduced recipe passed the
	// in-memory closure check
	if err := os.WriteFile(opts.outputPath, buf.Bytes(), 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", opts.outputPath)
	}
	return nil
}
