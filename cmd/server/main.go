// Command server runs tinyhttpd.
package main

import (
	"fmt"
	"os"

	"tinyhttpd/internal/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
