package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/mlevkov/shortly/internal/app"
	"github.com/mlevkov/shortly/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(config.WithDisableFlagsParsing(true))
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup error:", err)
		os.Exit(1)
	}
	defer application.Close()

	runner := newRunner(application)

	root := &cli.Command{
		Name:    "shortly",
		Usage:   "Shorten URLs, track your links and view click analytics",
		Version: "1.2.0",
		Commands: []*cli.Command{
			shortenCommand(runner),
			signUpCommand(runner),
			logInCommand(runner),
			logOutCommand(runner),
			whoAmICommand(runner),
			urlsCommand(runner),
			resolveCommand(runner),
			statsCommand(runner),
		},
	}

	if err := root.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
