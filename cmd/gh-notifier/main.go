package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/nhle/gh-notifier/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Main(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		// go-flags already printed parse errors.
		if _, ok := err.(*flags.Error); !ok {
			fmt.Fprintln(os.Stderr, "gh-notifier:", err)
		}
		cancel()
		os.Exit(1)
	}
}
