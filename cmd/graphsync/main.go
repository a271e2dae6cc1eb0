// Command graphsync keeps a graph store in step with a primary document
// store and audits the two for drift.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/graphsync/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
