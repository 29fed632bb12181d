package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/syncgraph/internal/app"
	"github.com/vk/syncgraph/internal/cli"
)

// main is the entrypoint for the syncgraph application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The real main function handles errors and exit codes.
	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		stop()
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. Reports go to outW, logs to logW.
func run(ctx context.Context, outW, logW io.Writer, args []string) (err error) {
	cfg, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	syncgraphApp, err := app.NewApp(outW, cfg, app.WithLogWriter(logW))
	if err != nil {
		return fmt.Errorf("application startup failed: %w", err)
	}
	defer func() {
		err = errors.Join(err, syncgraphApp.Close())
	}()

	return syncgraphApp.Run(ctx)
}
