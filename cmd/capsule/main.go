// Command capsule serializes JavaScript value graphs, closures included.
package main

import (
	"context"
	"os"

	"github.com/roach88/capsule/internal/cli"
)

func main() {
	err := cli.NewRootCommand().ExecuteContext(context.Background())
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
	}
	os.Exit(cli.GetExitCode(err))
}
