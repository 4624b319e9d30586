// Package cmdutil holds the state shared by every subcommand.
package cmdutil

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/pflag"

	"github.com/preiter93/cargo-reduce-recipe/internal/config"
	"github.com/preiter93/cargo-reduce-recipe/internal/ui"
)

// Helper is passed to subcommand constructors and carries config, logger and
// terminal UI.
type Helper struct {
	Config *config.Config
	Logger hclog.Logger
	UI     cli.Ui
}

// NewHelper builds the shared command state for the given CLI version.
func NewHelper(version string) (*Helper, error) {
	cfg, err := config.New(version)
	if err != nil {
		return nil, err
	}
	cfg.AttachLogger("cargo-reduce-recipe")
	return &Helper{
		Config: cfg,
		Logger: cfg.Logger,
		UI:     ui.Default(),
	}, nil
}

// AddFlags binds the global flags onto the root flag set. Flags override
// whatever the environment provided.
func (h *Helper) AddFlags(flags *pflag.FlagSet) {
	flags.IntVarP(&h.Config.Verbosity, "verbosity", "v", h.Config.Verbosity, "Set the amount of logging, 0 to 3.")
	flags.BoolVar(&h.Config.NoColor, "no-color", h.Config.NoColor, "Suppress color in terminal output.")
}

// ApplyFlags rebuilds the logger after flag parsing so flag-level verbosity
// takes effect.
func (h *Helper) ApplyFlags() {
	h.Config.AttachLogger("cargo-reduce-recipe")
	h.Logger = h.Config.Logger
}

// LogWarning logs a warning and prints it to the terminal.
func (h *Helper) LogWarning(format string, args ...interface{}) {
	err := fmt.Errorf(format, args...)
	h.Logger.Warn(fmt.Sprintf("warning: %v", err))
	h.UI.Error(fmt.Sprintf("%s%s", ui.WarningPrefix, color.YellowString(" %v", err)))
}

// LogError logs an error and prints it to the terminal.
func (h *Helper) LogError(format string, args ...interface{}) {
	err := fmt.Errorf(format, args...)
	h.Logger.Error(fmt.Sprintf("error: %v", err))
	h.UI.Error(fmt.Sprintf("%s%s", ui.ErrorPrefix, color.RedString(" %v", err)))
}
