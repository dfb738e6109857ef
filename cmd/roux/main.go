// Package main provides the entry point for the roux CLI.
package main

import (
	"fmt"
	"os"

	"github.com/rouxgraph/roux/cmd/roux/cmd"
	rouxerrors "github.com/rouxgraph/roux/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, rouxerrors.FormatForCLI(err))
		os.Exit(1)
	}
}
