// Command scrollytell serves, checks and exports scrollytelling articles.
package main

import (
	"os"

	"github.com/livetemplate/scrollytell/cmd/scrollytell/commands"
)

var version = "0.1.0-dev"

func main() {
	os.Exit(run())
}

func run() int {
	if err := commands.NewRootCmd(version).Execute(); err != nil {
		commands.PrintError(os.Stderr, err)
		return 1
	}
	return 0
}
