// Package ui holds terminal output helpers shared by the commands.
package ui

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mitchellh/cli"
)

// IsTTY is true when stdout appears to be a tty
var IsTTY = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

var gray = color.New(color.Faint)
var bold = color.New(color.Bold)

// ErrorPrefix is a colored string for error level messages
var ErrorPrefix = color.New(color.Bold, color.FgRed, color.ReverseVideo).Sprint(" ERROR ")

// WarningPrefix is a colored string for warning level messages
var WarningPrefix = color.New(color.Bold, color.FgYellow, color.ReverseVideo).Sprint(" WARNING ")

// Dim prints out dimmed text
func Dim(str string) string {
	return gray.Sprint(str)
}

// Bold prints out bolded text
func Bold(str string) string {
	return bold.Sprint(str)
}

// Default returns the standard terminal UI writing to stdout/stderr.
func Default() cli.Ui {
	return &cli.BasicUi{
		Reader:      os.Stdin,
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}
}
