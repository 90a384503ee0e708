// Package main is the entry point for the pkgindexctl admin binary.
package main

import (
	"os"

	"pkgindex/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
