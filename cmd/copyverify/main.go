package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	appErrors "copyverify/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	c := newCLI(os.Stdout, os.Stderr)
	err := c.rootCommand().ExecuteContext(ctx)
	c.shutdown()
	stop()
	if err != nil {
		exitWithError(err)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, appErrors.UserMessage(err))
	os.Exit(1)
}
