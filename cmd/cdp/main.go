// Package main is the entry point for the cdp CLI, a thin shell over the
// declarative client engine: it loads a service document, hands the
// engine an operation name and a native argument tree, and prints the
// native response tree.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cdp",
	Short: "Declarative control-plane API client",
	Long: `A command-line client for the CDP control plane.
Operations are described by declarative service documents; the engine
builds, signs and sends the requests at run time.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
