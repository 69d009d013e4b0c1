// Package main provides the entry point for the qbashq query engine CLI.
package main

import (
	"os"

	"github.com/qbasher/qbashq/cmd/qbashq/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
