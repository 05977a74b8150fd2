package main

import (
	"fmt"
	"os"

	"github.com/opsboard/opsboard/cmd/opsctl/cli"
	"github.com/opsboard/opsboard/internal/app"
)

func main() {
	ctx, stop := app.SignalContext()
	defer stop()

	if err := cli.NewRootCommand(cli.Options{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "opsctl:", err)
		stop()
		os.Exit(1)
	}
}
