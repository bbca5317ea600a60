// Command contact-cli checks configuration, maintains the monthly logs
// and probes a running contact-server.
package main

import (
	"fmt"
	"os"

	"github.com/testwebinoue-debug/sept3/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
