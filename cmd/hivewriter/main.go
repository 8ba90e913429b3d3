package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gear6io/hivewriter/cli"
	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/pterm/pterm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ExecuteWithContext(ctx); err != nil {
		pterm.Error.WithWriter(os.Stderr).Println(errors.FormatError(err))
		stop()
		os.Exit(1)
	}
}
