package main

import (
	"os"

	"github.com/preiter93/cargo-reduce-recipe/internal/cmd"
)

const cliVersion = "0.1.0"

func main() {
	os.Exit(cmd.RunWithArgs(os.Args[1:], cliVersion))
}
