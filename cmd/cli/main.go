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

	"github.com/vk/assetgrid/internal/app"
	"github.com/vk/assetgrid/internal/cli"
	"github.com/vk/assetgrid/internal/executor"
	"github.com/vk/assetgrid/internal/hcl"
)

// main is the entrypoint for the assetgrid application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()

	if err != nil {
		report(os.Stderr, err)
	}
	os.Exit(cli.ExitCode(err))
}

// report prints err unless the console already told the user about it.
func report(w io.Writer, err error) {
	var taskErr *executor.TaskError
	if errors.As(err, &taskErr) {
		return
	}
	fmt.Fprintln(w, err)
}

// run encapsulates the main application logic for easier testing and error
// handling.
func run(ctx context.Context, outW, errW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// A panic in a task surfaces as a clean exit message.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected panic: %v", r)
		}
	}()

	assetgridApp, err := app.NewApp(outW, errW, appConfig, hcl.NewLoader())
	if err != nil {
		return err
	}
	return assetgridApp.Run(ctx)
}
