// Command rowgraph queries a SQLite database through a model schema and
// prints nested entities, and manages stored JSON documents.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/rowgraph/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
