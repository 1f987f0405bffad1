// Package main provides the entry point for the veyra CLI.
package main

import (
	"os"

	"github.com/veyra-dev/veyra/cmd/veyra/cmd"
)

func main() {
	err := cmd.NewRootCmd().Execute()
	os.Exit(cmd.ExitCode(err))
}
