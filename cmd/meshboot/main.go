package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/yndnr/meshboot/internal/cli/command"
	"github.com/yndnr/meshboot/internal/core/domain"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run() error {
	return command.App().Run(os.Args)
}

// exitCode returns 2 for rejected arguments and 1 for every other failure.
func exitCode(err error) int {
	if strings.HasPrefix(domain.GetErrorCode(err), "MB-ARG-") {
		return 2
	}
	return 1
}
