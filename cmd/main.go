// cmd/main.go is the application entry point.
// Subcommands run the API server, apply the schema, or act as a terminal client.
package main

import (
	"fmt"
	"os"

	"github.com/Shivanand-hulikatti/checkedin/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
