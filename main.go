// ABOUTME: Entry point for the warmer outreach scheduler
// ABOUTME: Hands the command line to the cobra root command
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/harperreed/warmer/cli"
)

const version = "0.1.0"

func main() {
	if err := cli.NewRootCommand(version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
