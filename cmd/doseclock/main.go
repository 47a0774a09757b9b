package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"doseclock/internal/cli"
)

// @title DoseClock API
// @version 1.0
// @description Agenda de dosis: generación, confirmación y avisos.
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
