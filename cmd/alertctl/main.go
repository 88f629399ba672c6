package main

import (
	"os"

	"github.com/feral-file/ff-alert-indexer/internal/config"
)

func main() {
	config.ChdirRepoRoot()
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
