package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"kasir/internal/app/bootstrap"
)

// Projection worker entrypoint.
// Data flow:
// 1) Load config and open the journal.
// 2) Wire the event-store module and in-process bus.
// 3) Drain newly stored events to per-type topics until shutdown.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildWorker(ctx)
	if err != nil {
		slog.Error("worker bootstrap failed", "error", err.Error())
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		slog.Error("worker stopped with error", "error", err.Error())
		os.Exit(1)
	}
}
